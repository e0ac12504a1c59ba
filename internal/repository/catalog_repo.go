package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

// CatalogRepository handles data access for products and their quality tiers.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const productColumns = `id, name, description, image_url, created_at, updated_at`

const qualityColumns = `q.id, q.product_id, q.quality, q.retail_price, q.wholesale_price,
        q.broker_price, q.stock_quantity, q.created_at, q.updated_at, p.name AS product_name`

// ListProducts returns products ordered by name plus the total matching count.
func (r *CatalogRepository) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	const where = ` WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')`

	var total int
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, `SELECT COUNT(*) FROM products`+where, f.Search); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY name`
	args := []interface{}{f.Search}
	if offset, ok := pageBounds(f.Page, f.Limit); ok {
		q += ` LIMIT $2 OFFSET $3`
		args = append(args, f.Limit, offset)
	}

	products := []models.Product{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &products, q, args...); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// SearchProducts returns up to limit products whose name contains term.
func (r *CatalogRepository) SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products
        WHERE name ILIKE '%' || $1 || '%'
        ORDER BY name LIMIT $2`

	products := []models.Product{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &products, q, term, limit); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns a single product by id.
func (r *CatalogRepository) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	var p models.Product
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &p, `SELECT `+productColumns+` FROM products WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProductByName matches a product name case-insensitively.
func (r *CatalogRepository) GetProductByName(ctx context.Context, name string) (*models.Product, error) {
	var p models.Product
	const q = `SELECT ` + productColumns + ` FROM products WHERE LOWER(name) = LOWER($1) LIMIT 1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &p, q, name); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct inserts a product and fills its generated fields.
func (r *CatalogRepository) CreateProduct(ctx context.Context, p *models.Product) error {
	const q = `INSERT INTO products (name, description, image_url)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, q, p.Name, p.Description, p.ImageURL).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return translate(err)
}

// UpdateProduct saves the editable product fields.
func (r *CatalogRepository) UpdateProduct(ctx context.Context, p *models.Product) error {
	const q = `UPDATE products
        SET name = $1, description = $2, image_url = $3, updated_at = NOW()
        WHERE id = $4
        RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, q, p.Name, p.Description, p.ImageURL, p.ID).Scan(&p.UpdatedAt)
	return translate(err)
}

// DeleteProduct removes a product and its qualities. Products referenced by
// invoice items are protected by a foreign key and yield ErrReferenced.
func (r *CatalogRepository) DeleteProduct(ctx context.Context, id int) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return translate(err)
}

// ListQualities returns the qualities of the given products ordered by tier.
func (r *CatalogRepository) ListQualities(ctx context.Context, productIDs []int) ([]models.ProductQuality, error) {
	qualities := []models.ProductQuality{}
	if len(productIDs) == 0 {
		return qualities, nil
	}
	const q = `SELECT ` + qualityColumns + `
        FROM product_qualities q
        JOIN products p ON p.id = q.product_id
        WHERE q.product_id = ANY($1)
        ORDER BY q.product_id, CASE q.quality WHEN 'premium' THEN 1 WHEN 'standard' THEN 2 ELSE 3 END`

	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &qualities, q, pq.Array(toInt64s(productIDs))); err != nil {
		return nil, err
	}
	return qualities, nil
}

// ListPriceRows returns every quality with its product name, for price list export.
func (r *CatalogRepository) ListPriceRows(ctx context.Context) ([]models.ProductQuality, error) {
	const q = `SELECT ` + qualityColumns + `
        FROM product_qualities q
        JOIN products p ON p.id = q.product_id
        ORDER BY p.name, q.quality`

	rows := []models.ProductQuality{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetQuality returns a quality with its product name.
func (r *CatalogRepository) GetQuality(ctx context.Context, id int) (*models.ProductQuality, error) {
	const q = `SELECT ` + qualityColumns + `
        FROM product_qualities q
        JOIN products p ON p.id = q.product_id
        WHERE q.id = $1`

	var quality models.ProductQuality
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &quality, q, id); err != nil {
		return nil, err
	}
	return &quality, nil
}

// GetQualityForUpdate reads a quality and locks its row until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (r *CatalogRepository) GetQualityForUpdate(ctx context.Context, id int) (*models.ProductQuality, error) {
	const q = `SELECT id, product_id, quality, retail_price, wholesale_price, broker_price,
            stock_quantity, created_at, updated_at
        FROM product_qualities WHERE id = $1 FOR UPDATE`

	var quality models.ProductQuality
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &quality, q, id); err != nil {
		return nil, err
	}
	return &quality, nil
}

// FindQuality returns the (product, tier) quality row.
func (r *CatalogRepository) FindQuality(ctx context.Context, productID int, tier models.QualityTier) (*models.ProductQuality, error) {
	const q = `SELECT ` + qualityColumns + `
        FROM product_qualities q
        JOIN products p ON p.id = q.product_id
        WHERE q.product_id = $1 AND q.quality = $2`

	var quality models.ProductQuality
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &quality, q, productID, tier); err != nil {
		return nil, err
	}
	return &quality, nil
}

// CreateQuality inserts a quality tier for a product.
func (r *CatalogRepository) CreateQuality(ctx context.Context, q *models.ProductQuality) error {
	const stmt = `INSERT INTO product_qualities
            (product_id, quality, retail_price, wholesale_price, broker_price, stock_quantity)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, stmt,
		q.ProductID, q.Quality, q.RetailPrice, q.WholesalePrice, q.BrokerPrice, q.StockQuantity,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	return translate(err)
}

// UpdateQuality saves tier, prices and stock.
func (r *CatalogRepository) UpdateQuality(ctx context.Context, q *models.ProductQuality) error {
	const stmt = `UPDATE product_qualities
        SET quality = $1, retail_price = $2, wholesale_price = $3, broker_price = $4,
            stock_quantity = $5, updated_at = NOW()
        WHERE id = $6
        RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, stmt,
		q.Quality, q.RetailPrice, q.WholesalePrice, q.BrokerPrice, q.StockQuantity, q.ID,
	).Scan(&q.UpdatedAt)
	return translate(err)
}

// SetStock overwrites the stock level of a quality.
func (r *CatalogRepository) SetStock(ctx context.Context, id int, stock decimal.Decimal) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE product_qualities SET stock_quantity = $1, updated_at = NOW() WHERE id = $2`, stock, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set stock for quality %d: no rows updated", id)
	}
	return nil
}

// DeleteQuality removes a quality tier.
func (r *CatalogRepository) DeleteQuality(ctx context.Context, id int) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM product_qualities WHERE id = $1`, id)
	return translate(err)
}
