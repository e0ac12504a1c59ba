package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// SearchMinChars is the shortest term the search-as-you-type endpoints accept.
const (
	SearchMinChars = 2
	SearchLimit    = 10
)

// CatalogService handles products, their quality tiers and price lists.
type CatalogService struct {
	tx    TxRunner
	store CatalogStore
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(tx TxRunner, store CatalogStore) *CatalogService {
	return &CatalogService{tx: tx, store: store}
}

// ProductRequest is the payload for creating or updating a product.
type ProductRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

// QualityRequest is the payload for creating or updating a quality tier.
type QualityRequest struct {
	Quality        models.QualityTier `json:"quality" validate:"oneof=premium standard economy"`
	RetailPrice    decimal.Decimal    `json:"retailPrice" validate:"gte=0"`
	WholesalePrice decimal.Decimal    `json:"wholesalePrice" validate:"gte=0"`
	BrokerPrice    decimal.Decimal    `json:"brokerPrice" validate:"gte=0"`
	StockQuantity  decimal.Decimal    `json:"stockQuantity" validate:"gte=0"`
}

// QualityPrice is the price a quality is quoted at for a customer type.
type QualityPrice struct {
	QualityID    int                 `json:"qualityId"`
	ProductID    int                 `json:"productId"`
	ProductName  string              `json:"productName"`
	Quality      models.QualityTier  `json:"quality"`
	CustomerType models.CustomerType `json:"customerType"`
	Price        decimal.Decimal     `json:"price"`
	Stock        decimal.Decimal     `json:"stockQuantity"`
}

// ListProducts returns a page of products with their qualities.
func (s *CatalogService) ListProducts(ctx context.Context, f repository.ProductFilter) ([]models.Product, int, error) {
	products, total, err := s.store.ListProducts(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachQualities(ctx, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// SearchProducts powers search-as-you-type. Terms shorter than
// SearchMinChars yield an empty result.
func (s *CatalogService) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < SearchMinChars {
		return []models.Product{}, nil
	}
	products, err := s.store.SearchProducts(ctx, term, SearchLimit)
	if err != nil {
		return nil, err
	}
	if err := s.attachQualities(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns a product with its qualities.
func (s *CatalogService) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, utils.ErrProductNotFound)
	}
	qualities, err := s.store.ListQualities(ctx, []int{p.ID})
	if err != nil {
		return nil, err
	}
	p.Qualities = qualities
	return p, nil
}

// CreateProduct creates a product. Names are unique ignoring case.
func (s *CatalogService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, req.Name, 0); err != nil {
		return nil, err
	}

	p := &models.Product{Name: req.Name, Description: req.Description, ImageURL: req.ImageURL}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.Wrap(utils.ErrDuplicateProduct, "Product '%s' already exists", req.Name)
		}
		return nil, err
	}
	p.Qualities = []models.ProductQuality{}
	return p, nil
}

// UpdateProduct replaces name, description and image of a product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int, req *ProductRequest) (*models.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, utils.ErrProductNotFound)
	}
	if err := s.ensureUniqueName(ctx, req.Name, id); err != nil {
		return nil, err
	}

	p.Name = req.Name
	p.Description = req.Description
	p.ImageURL = req.ImageURL
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.Wrap(utils.ErrDuplicateProduct, "Product '%s' already exists", req.Name)
		}
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product that no invoice references.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int) error {
	if _, err := s.store.GetProduct(ctx, id); err != nil {
		return notFound(err, utils.ErrProductNotFound)
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return utils.Wrap(utils.ErrProductInUse, "Product is used on invoices and cannot be deleted")
		}
		return err
	}
	return nil
}

// CreateQuality adds a quality tier to a product.
func (s *CatalogService) CreateQuality(ctx context.Context, productID int, req *QualityRequest) (*models.ProductQuality, error) {
	req.Quality = models.QualityTier(strings.ToLower(strings.TrimSpace(string(req.Quality))))
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, notFound(err, utils.ErrProductNotFound)
	}

	q := &models.ProductQuality{
		ProductID:      productID,
		Quality:        req.Quality,
		RetailPrice:    req.RetailPrice,
		WholesalePrice: req.WholesalePrice,
		BrokerPrice:    req.BrokerPrice,
		StockQuantity:  req.StockQuantity,
		ProductName:    p.Name,
	}
	if err := s.store.CreateQuality(ctx, q); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.Wrap(utils.ErrDuplicateQuality, "%s already has a %s quality", p.Name, req.Quality)
		}
		return nil, err
	}
	return q, nil
}

// UpdateQuality changes tier, prices and stock of a quality.
func (s *CatalogService) UpdateQuality(ctx context.Context, id int, req *QualityRequest) (*models.ProductQuality, error) {
	req.Quality = models.QualityTier(strings.ToLower(strings.TrimSpace(string(req.Quality))))
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	q, err := s.store.GetQuality(ctx, id)
	if err != nil {
		return nil, notFound(err, utils.ErrQualityNotFound)
	}

	q.Quality = req.Quality
	q.RetailPrice = req.RetailPrice
	q.WholesalePrice = req.WholesalePrice
	q.BrokerPrice = req.BrokerPrice
	q.StockQuantity = req.StockQuantity
	if err := s.store.UpdateQuality(ctx, q); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.Wrap(utils.ErrDuplicateQuality, "%s already has a %s quality", q.ProductName, req.Quality)
		}
		return nil, err
	}
	return q, nil
}

// DeleteQuality removes a quality tier that no invoice references.
func (s *CatalogService) DeleteQuality(ctx context.Context, id int) error {
	if _, err := s.store.GetQuality(ctx, id); err != nil {
		return notFound(err, utils.ErrQualityNotFound)
	}
	if err := s.store.DeleteQuality(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return utils.Wrap(utils.ErrProductInUse, "Quality is used on invoices and cannot be deleted")
		}
		return err
	}
	return nil
}

// PriceFor quotes a quality for a customer type. Unknown types get retail.
func (s *CatalogService) PriceFor(ctx context.Context, qualityID int, customerType models.CustomerType) (*QualityPrice, error) {
	q, err := s.store.GetQuality(ctx, qualityID)
	if err != nil {
		return nil, notFound(err, utils.ErrQualityNotFound)
	}
	if !customerType.Valid() {
		customerType = models.CustomerRetail
	}
	return &QualityPrice{
		QualityID:    q.ID,
		ProductID:    q.ProductID,
		ProductName:  q.ProductName,
		Quality:      q.Quality,
		CustomerType: customerType,
		Price:        q.PriceFor(customerType),
		Stock:        q.StockQuantity,
	}, nil
}

func (s *CatalogService) ensureUniqueName(ctx context.Context, name string, selfID int) error {
	existing, err := s.store.GetProductByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return utils.Wrap(utils.ErrDuplicateProduct, "Product '%s' already exists", name)
	}
	return nil
}

func (s *CatalogService) attachQualities(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]int, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	qualities, err := s.store.ListQualities(ctx, ids)
	if err != nil {
		log.Error().Err(err).Ints("product_ids", ids).Msg("Failed to load product qualities")
		return err
	}

	byProduct := make(map[int][]models.ProductQuality, len(products))
	for _, q := range qualities {
		byProduct[q.ProductID] = append(byProduct[q.ProductID], q)
	}
	for i := range products {
		products[i].Qualities = byProduct[products[i].ID]
		if products[i].Qualities == nil {
			products[i].Qualities = []models.ProductQuality{}
		}
	}
	return nil
}
