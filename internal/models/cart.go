package models

import "github.com/shopspring/decimal"

// CartItem is one line in a session cart. Quantities are always kilograms.
type CartItem struct {
	ProductID   int             `json:"productId"`
	ProductName string          `json:"productName"`
	QualityID   int             `json:"qualityId"`
	Quality     QualityTier     `json:"quality"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Reprice recomputes Subtotal from Quantity and UnitPrice.
func (c *CartItem) Reprice() {
	c.Subtotal = c.UnitPrice.Mul(c.Quantity).Round(2)
}

// Cart is the ephemeral list of lines a staff member is building an invoice from.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Subtotal sums the line subtotals.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.Subtotal)
	}
	return sum
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return c == nil || len(c.Items) == 0
}
