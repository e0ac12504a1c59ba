// Package testutil holds in-memory stand-ins for the PostgreSQL and Redis
// stores so services and handlers can be tested without a database.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
)

type state struct {
	products  map[int]models.Product
	qualities map[int]models.ProductQuality
	customers map[int]models.Customer
	invoices  map[int]models.Invoice
	items     map[int]models.InvoiceItem
	payments  map[int]models.Payment
	reminders map[int]models.Reminder
	staff     map[int]models.StaffUser
	nextID    int
}

func newState() *state {
	return &state{
		products:  map[int]models.Product{},
		qualities: map[int]models.ProductQuality{},
		customers: map[int]models.Customer{},
		invoices:  map[int]models.Invoice{},
		items:     map[int]models.InvoiceItem{},
		payments:  map[int]models.Payment{},
		reminders: map[int]models.Reminder{},
		staff:     map[int]models.StaffUser{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		products:  copyMap(s.products),
		qualities: copyMap(s.qualities),
		customers: copyMap(s.customers),
		invoices:  copyMap(s.invoices),
		items:     copyMap(s.items),
		payments:  copyMap(s.payments),
		reminders: copyMap(s.reminders),
		staff:     copyMap(s.staff),
		nextID:    s.nextID,
	}
}

func (s *state) id() int {
	s.nextID++
	return s.nextID
}

// MemoryStore keeps every table in memory behind one mutex. WithinTx takes a
// snapshot and restores it when fn fails, so rollbacks behave like the
// database. The per-table views returned by Catalog, Customers and friends
// satisfy the service store interfaces.
type MemoryStore struct {
	mu  sync.Mutex
	st  *state
	Now func() time.Time
}

// NewMemoryStore returns an empty store whose clock is time.Now.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newState(), Now: time.Now}
}

type memTxKey struct{}

// WithinTx runs fn and rolls every table back when it returns an error.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryStore) lock() (*state, func()) {
	m.mu.Lock()
	return m.st, m.mu.Unlock
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func page[T any](rows []T, pageNo, limit int) []T {
	if limit <= 0 {
		return rows
	}
	if pageNo <= 0 {
		pageNo = 1
	}
	start := (pageNo - 1) * limit
	if start >= len(rows) {
		return []T{}
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func duplicate(what string) error {
	return fmt.Errorf("%w: %s", repository.ErrDuplicate, what)
}

func referenced(what string) error {
	return fmt.Errorf("%w: %s", repository.ErrReferenced, what)
}

// ---- catalog ----

// CatalogMem is the catalog view of a MemoryStore.
type CatalogMem struct{ m *MemoryStore }

// Catalog returns the product and quality tables.
func (m *MemoryStore) Catalog() *CatalogMem { return &CatalogMem{m} }

func sortedProducts(st *state, keep func(models.Product) bool) []models.Product {
	out := []models.Product{}
	for _, p := range st.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *CatalogMem) ListProducts(_ context.Context, f repository.ProductFilter) ([]models.Product, int, error) {
	st, unlock := c.m.lock()
	defer unlock()
	rows := sortedProducts(st, func(p models.Product) bool { return f.Search == "" || contains(p.Name, f.Search) })
	return page(rows, f.Page, f.Limit), len(rows), nil
}

func (c *CatalogMem) SearchProducts(_ context.Context, term string, limit int) ([]models.Product, error) {
	st, unlock := c.m.lock()
	defer unlock()
	rows := sortedProducts(st, func(p models.Product) bool { return contains(p.Name, term) })
	return page(rows, 1, limit), nil
}

func (c *CatalogMem) GetProduct(_ context.Context, id int) (*models.Product, error) {
	st, unlock := c.m.lock()
	defer unlock()
	p, ok := st.products[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (c *CatalogMem) GetProductByName(_ context.Context, name string) (*models.Product, error) {
	st, unlock := c.m.lock()
	defer unlock()
	matches := sortedProducts(st, func(p models.Product) bool { return strings.EqualFold(p.Name, name) })
	if len(matches) == 0 {
		return nil, sql.ErrNoRows
	}
	return &matches[0], nil
}

func productNameTaken(st *state, name string, except int) bool {
	for _, p := range st.products {
		if p.ID != except && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (c *CatalogMem) CreateProduct(_ context.Context, p *models.Product) error {
	st, unlock := c.m.lock()
	defer unlock()
	if productNameTaken(st, p.Name, 0) {
		return duplicate("products_name_key")
	}
	p.ID = st.id()
	p.CreatedAt = c.m.Now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Qualities = nil
	st.products[p.ID] = stored
	return nil
}

func (c *CatalogMem) UpdateProduct(_ context.Context, p *models.Product) error {
	st, unlock := c.m.lock()
	defer unlock()
	old, ok := st.products[p.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if productNameTaken(st, p.Name, p.ID) {
		return duplicate("products_name_key")
	}
	old.Name, old.Description, old.ImageURL = p.Name, p.Description, p.ImageURL
	old.UpdatedAt = c.m.Now()
	p.UpdatedAt = old.UpdatedAt
	st.products[p.ID] = old
	return nil
}

func (c *CatalogMem) DeleteProduct(_ context.Context, id int) error {
	st, unlock := c.m.lock()
	defer unlock()
	for _, it := range st.items {
		if it.ProductID == id {
			return referenced("invoice_items_product_id_fkey")
		}
	}
	delete(st.products, id)
	for qid, q := range st.qualities {
		if q.ProductID == id {
			delete(st.qualities, qid)
		}
	}
	return nil
}

func tierRank(q models.QualityTier) int {
	switch q {
	case models.QualityPremium:
		return 1
	case models.QualityStandard:
		return 2
	}
	return 3
}

func withProductName(st *state, q models.ProductQuality) models.ProductQuality {
	q.ProductName = st.products[q.ProductID].Name
	return q
}

func (c *CatalogMem) ListQualities(_ context.Context, productIDs []int) ([]models.ProductQuality, error) {
	st, unlock := c.m.lock()
	defer unlock()
	want := map[int]bool{}
	for _, id := range productIDs {
		want[id] = true
	}
	out := []models.ProductQuality{}
	for _, q := range st.qualities {
		if want[q.ProductID] {
			out = append(out, withProductName(st, q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return tierRank(out[i].Quality) < tierRank(out[j].Quality)
	})
	return out, nil
}

func (c *CatalogMem) ListPriceRows(_ context.Context) ([]models.ProductQuality, error) {
	st, unlock := c.m.lock()
	defer unlock()
	out := []models.ProductQuality{}
	for _, q := range st.qualities {
		out = append(out, withProductName(st, q))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		return out[i].Quality < out[j].Quality
	})
	return out, nil
}

func (c *CatalogMem) GetQuality(_ context.Context, id int) (*models.ProductQuality, error) {
	st, unlock := c.m.lock()
	defer unlock()
	q, ok := st.qualities[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	q = withProductName(st, q)
	return &q, nil
}

func (c *CatalogMem) GetQualityForUpdate(ctx context.Context, id int) (*models.ProductQuality, error) {
	q, err := c.GetQuality(ctx, id)
	if err != nil {
		return nil, err
	}
	q.ProductName = ""
	return q, nil
}

func (c *CatalogMem) FindQuality(_ context.Context, productID int, tier models.QualityTier) (*models.ProductQuality, error) {
	st, unlock := c.m.lock()
	defer unlock()
	for _, q := range st.qualities {
		if q.ProductID == productID && q.Quality == tier {
			q = withProductName(st, q)
			return &q, nil
		}
	}
	return nil, sql.ErrNoRows
}

func qualityTaken(st *state, productID int, tier models.QualityTier, except int) bool {
	for _, q := range st.qualities {
		if q.ID != except && q.ProductID == productID && q.Quality == tier {
			return true
		}
	}
	return false
}

func (c *CatalogMem) CreateQuality(_ context.Context, q *models.ProductQuality) error {
	st, unlock := c.m.lock()
	defer unlock()
	if _, ok := st.products[q.ProductID]; !ok {
		return referenced("product_qualities_product_id_fkey")
	}
	if qualityTaken(st, q.ProductID, q.Quality, 0) {
		return duplicate("product_qualities_product_id_quality_key")
	}
	q.ID = st.id()
	q.CreatedAt = c.m.Now()
	q.UpdatedAt = q.CreatedAt
	stored := *q
	stored.ProductName = ""
	st.qualities[q.ID] = stored
	return nil
}

func (c *CatalogMem) UpdateQuality(_ context.Context, q *models.ProductQuality) error {
	st, unlock := c.m.lock()
	defer unlock()
	old, ok := st.qualities[q.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if qualityTaken(st, old.ProductID, q.Quality, q.ID) {
		return duplicate("product_qualities_product_id_quality_key")
	}
	old.Quality = q.Quality
	old.RetailPrice, old.WholesalePrice, old.BrokerPrice = q.RetailPrice, q.WholesalePrice, q.BrokerPrice
	old.StockQuantity = q.StockQuantity
	old.UpdatedAt = c.m.Now()
	q.UpdatedAt = old.UpdatedAt
	st.qualities[q.ID] = old
	return nil
}

func (c *CatalogMem) SetStock(_ context.Context, id int, stock decimal.Decimal) error {
	st, unlock := c.m.lock()
	defer unlock()
	q, ok := st.qualities[id]
	if !ok {
		return fmt.Errorf("set stock for quality %d: no rows updated", id)
	}
	q.StockQuantity = stock
	q.UpdatedAt = c.m.Now()
	st.qualities[id] = q
	return nil
}

func (c *CatalogMem) DeleteQuality(_ context.Context, id int) error {
	st, unlock := c.m.lock()
	defer unlock()
	for _, it := range st.items {
		if it.ProductQualityID == id {
			return referenced("invoice_items_product_quality_id_fkey")
		}
	}
	delete(st.qualities, id)
	return nil
}

// ---- customers ----

// CustomerMem is the customer view of a MemoryStore.
type CustomerMem struct{ m *MemoryStore }

// Customers returns the customer table.
func (m *MemoryStore) Customers() *CustomerMem { return &CustomerMem{m} }

func sortedCustomers(st *state, keep func(models.Customer) bool) []models.Customer {
	out := []models.Customer{}
	for _, c := range st.customers {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *CustomerMem) List(_ context.Context, f repository.CustomerFilter) ([]models.Customer, int, error) {
	st, unlock := c.m.lock()
	defer unlock()
	rows := sortedCustomers(st, func(cu models.Customer) bool {
		if f.Search != "" && !contains(cu.Name, f.Search) && !contains(cu.Phone, f.Search) {
			return false
		}
		return f.CustomerType == "" || cu.CustomerType == f.CustomerType
	})
	return page(rows, f.Page, f.Limit), len(rows), nil
}

func (c *CustomerMem) Search(_ context.Context, term string, limit int) ([]models.Customer, error) {
	st, unlock := c.m.lock()
	defer unlock()
	rows := sortedCustomers(st, func(cu models.Customer) bool { return contains(cu.Name, term) || contains(cu.Phone, term) })
	return page(rows, 1, limit), nil
}

func (c *CustomerMem) GetByID(_ context.Context, id int) (*models.Customer, error) {
	st, unlock := c.m.lock()
	defer unlock()
	cu, ok := st.customers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &cu, nil
}

func (c *CustomerMem) FindDuplicate(_ context.Context, name, phone string) (*models.Customer, error) {
	st, unlock := c.m.lock()
	defer unlock()
	var found *models.Customer
	for _, cu := range st.customers {
		if strings.EqualFold(cu.Name, name) || cu.Phone == phone {
			if found == nil || cu.ID < found.ID {
				match := cu
				found = &match
			}
		}
	}
	if found == nil {
		return nil, sql.ErrNoRows
	}
	return found, nil
}

func phoneTaken(st *state, phone string, except int) bool {
	for _, cu := range st.customers {
		if cu.ID != except && cu.Phone == phone {
			return true
		}
	}
	return false
}

func (c *CustomerMem) Create(_ context.Context, cu *models.Customer) error {
	st, unlock := c.m.lock()
	defer unlock()
	if phoneTaken(st, cu.Phone, 0) {
		return duplicate("customers_phone_key")
	}
	cu.ID = st.id()
	cu.CreatedAt = c.m.Now()
	cu.UpdatedAt = cu.CreatedAt
	st.customers[cu.ID] = *cu
	return nil
}

func (c *CustomerMem) Update(_ context.Context, cu *models.Customer) error {
	st, unlock := c.m.lock()
	defer unlock()
	old, ok := st.customers[cu.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if phoneTaken(st, cu.Phone, cu.ID) {
		return duplicate("customers_phone_key")
	}
	cu.CreatedAt = old.CreatedAt
	cu.UpdatedAt = c.m.Now()
	st.customers[cu.ID] = *cu
	return nil
}

func (c *CustomerMem) Delete(_ context.Context, id int) error {
	st, unlock := c.m.lock()
	defer unlock()
	for _, inv := range st.invoices {
		if inv.CustomerID == id {
			return referenced("invoices_customer_id_fkey")
		}
	}
	delete(st.customers, id)
	return nil
}

func (c *CustomerMem) PendingAmount(_ context.Context, customerID int) (decimal.Decimal, error) {
	st, unlock := c.m.lock()
	defer unlock()
	sum := decimal.Zero
	for _, inv := range st.invoices {
		if inv.CustomerID != customerID || !inv.Status.IsOpen() {
			continue
		}
		if due := inv.AmountDue(); due.IsPositive() {
			sum = sum.Add(due)
		}
	}
	return sum, nil
}

// ---- carts ----

// CartMem keeps session carts in a map.
type CartMem struct {
	mu    sync.Mutex
	carts map[string]models.Cart
}

// NewCartMem returns an empty cart store.
func NewCartMem() *CartMem {
	return &CartMem{carts: map[string]models.Cart{}}
}

func (c *CartMem) Load(_ context.Context, session string) (*models.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cart := c.carts[session]
	out := &models.Cart{Items: append([]models.CartItem{}, cart.Items...)}
	return out, nil
}

func (c *CartMem) Save(_ context.Context, session string, cart *models.Cart) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[session] = models.Cart{Items: append([]models.CartItem{}, cart.Items...)}
	return nil
}

func (c *CartMem) Clear(_ context.Context, session string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, session)
	return nil
}
