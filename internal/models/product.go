package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QualityTier enumerates the pricing variants a product can be sold in.
type QualityTier string

const (
	QualityPremium  QualityTier = "premium"
	QualityStandard QualityTier = "standard"
	QualityEconomy  QualityTier = "economy"
)

// Valid reports whether q is one of the known tiers.
func (q QualityTier) Valid() bool {
	switch q {
	case QualityPremium, QualityStandard, QualityEconomy:
		return true
	}
	return false
}

// Label is the tier name as printed on documents.
func (q QualityTier) Label() string {
	switch q {
	case QualityPremium:
		return "Premium"
	case QualityStandard:
		return "Standard"
	case QualityEconomy:
		return "Economy"
	}
	return string(q)
}

// Product represents a catalog entry. Qualities is populated by the service
// layer when the caller needs the variants alongside the product.
type Product struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	ImageURL    string    `db:"image_url" json:"imageUrl,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	Qualities []ProductQuality `db:"-" json:"qualities,omitempty"`
}

// ProductQuality is one quality tier of a product with its own prices and stock.
type ProductQuality struct {
	ID             int             `db:"id" json:"id"`
	ProductID      int             `db:"product_id" json:"productId"`
	Quality        QualityTier     `db:"quality" json:"quality"`
	RetailPrice    decimal.Decimal `db:"retail_price" json:"retailPrice"`
	WholesalePrice decimal.Decimal `db:"wholesale_price" json:"wholesalePrice"`
	BrokerPrice    decimal.Decimal `db:"broker_price" json:"brokerPrice"`
	StockQuantity  decimal.Decimal `db:"stock_quantity" json:"stockQuantity"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`

	// Joined from products when listing.
	ProductName string `db:"product_name" json:"productName,omitempty"`
}

// PriceFor returns the price tier matching a customer type. Distributors buy
// at the broker price; unknown types fall back to retail.
func (q *ProductQuality) PriceFor(t CustomerType) decimal.Decimal {
	switch t {
	case CustomerWholesale:
		return q.WholesalePrice
	case CustomerDistributor:
		return q.BrokerPrice
	default:
		return q.RetailPrice
	}
}
