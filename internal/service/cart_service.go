package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

var thousand = decimal.NewFromInt(1000)

// CartService edits the per-session cart. Every operation is a
// read-modify-write of the whole cart.
type CartService struct {
	carts   CartRepository
	catalog CatalogStore
}

// NewCartService constructs a CartService.
func NewCartService(carts CartRepository, catalog CatalogStore) *CartService {
	return &CartService{carts: carts, catalog: catalog}
}

// AddCartItemRequest adds a quantity of a quality to the cart.
type AddCartItemRequest struct {
	QualityID int             `json:"qualityId" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit      string          `json:"unit"`
}

// UpdateCartItemRequest replaces the quantity of a line.
type UpdateCartItemRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit     string          `json:"unit"`
}

// CartSummary is the cart as returned to the client.
type CartSummary struct {
	Items     []models.CartItem `json:"items"`
	ItemCount int               `json:"itemCount"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
}

func summarise(cart *models.Cart) *CartSummary {
	return &CartSummary{Items: cart.Items, ItemCount: len(cart.Items), Subtotal: cart.Subtotal()}
}

// ToKilograms normalises a quantity in the given unit to kilograms. An empty
// unit means kilograms.
func ToKilograms(qty decimal.Decimal, unit string) (decimal.Decimal, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "kg", "kgs", "kilogram", "kilograms":
		return qty.Round(3), nil
	case "g", "gm", "gram", "grams":
		return qty.Div(thousand).Round(3), nil
	}
	return decimal.Zero, utils.Wrap(utils.ErrInvalidRequest, "Unsupported unit '%s'", unit)
}

// Get returns the session cart.
func (s *CartService) Get(ctx context.Context, session string) (*CartSummary, error) {
	cart, err := s.carts.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	return summarise(cart), nil
}

// Add appends a line, or merges into the line with the same product and
// quality by summing quantities.
func (s *CartService) Add(ctx context.Context, session string, req *AddCartItemRequest) (*CartSummary, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	qty, err := ToKilograms(req.Quantity, req.Unit)
	if err != nil {
		return nil, err
	}
	if !qty.IsPositive() {
		return nil, utils.Wrap(utils.ErrInvalidRequest, "Quantity must be greater than 0")
	}

	q, err := s.catalog.GetQuality(ctx, req.QualityID)
	if err != nil {
		return nil, notFound(err, utils.ErrQualityNotFound)
	}

	cart, err := s.carts.Load(ctx, session)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range cart.Items {
		it := &cart.Items[i]
		if it.ProductID == q.ProductID && it.QualityID == q.ID {
			it.Quantity = it.Quantity.Add(qty)
			it.Reprice()
			merged = true
			break
		}
	}
	if !merged {
		it := models.CartItem{
			ProductID:   q.ProductID,
			ProductName: q.ProductName,
			QualityID:   q.ID,
			Quality:     q.Quality,
			Quantity:    qty,
			UnitPrice:   q.RetailPrice,
		}
		it.Reprice()
		cart.Items = append(cart.Items, it)
	}

	if err := s.carts.Save(ctx, session, cart); err != nil {
		return nil, err
	}
	return summarise(cart), nil
}

// Update replaces the quantity of the line at index.
func (s *CartService) Update(ctx context.Context, session string, index int, req *UpdateCartItemRequest) (*CartSummary, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	qty, err := ToKilograms(req.Quantity, req.Unit)
	if err != nil {
		return nil, err
	}
	if !qty.IsPositive() {
		return nil, utils.Wrap(utils.ErrInvalidRequest, "Quantity must be greater than 0")
	}

	cart, err := s.loadWithIndex(ctx, session, index)
	if err != nil {
		return nil, err
	}
	it := &cart.Items[index]
	it.Quantity = qty
	it.Reprice()

	if err := s.carts.Save(ctx, session, cart); err != nil {
		return nil, err
	}
	return summarise(cart), nil
}

// UpdateQuality switches the line at index to another quality of the same
// product and reprices it at retail.
func (s *CartService) UpdateQuality(ctx context.Context, session string, index, qualityID int) (*CartSummary, error) {
	cart, err := s.loadWithIndex(ctx, session, index)
	if err != nil {
		return nil, err
	}
	q, err := s.catalog.GetQuality(ctx, qualityID)
	if err != nil {
		return nil, notFound(err, utils.ErrQualityNotFound)
	}

	it := &cart.Items[index]
	if q.ProductID != it.ProductID {
		return nil, utils.Wrap(utils.ErrQualityMismatch, "Quality does not belong to %s", it.ProductName)
	}
	it.QualityID = q.ID
	it.Quality = q.Quality
	it.UnitPrice = q.RetailPrice
	it.Reprice()

	if err := s.carts.Save(ctx, session, cart); err != nil {
		return nil, err
	}
	return summarise(cart), nil
}

// Remove deletes the line at index.
func (s *CartService) Remove(ctx context.Context, session string, index int) (*CartSummary, error) {
	cart, err := s.loadWithIndex(ctx, session, index)
	if err != nil {
		return nil, err
	}
	cart.Items = append(cart.Items[:index], cart.Items[index+1:]...)

	if err := s.carts.Save(ctx, session, cart); err != nil {
		return nil, err
	}
	return summarise(cart), nil
}

// Clear empties the session cart.
func (s *CartService) Clear(ctx context.Context, session string) error {
	return s.carts.Clear(ctx, session)
}

func (s *CartService) loadWithIndex(ctx context.Context, session string, index int) (*models.Cart, error) {
	cart, err := s.carts.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(cart.Items) {
		return nil, utils.Wrap(utils.ErrInvalidItemIndex, "Invalid item index")
	}
	return cart, nil
}
