package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/export"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// Canonical price-list headers, in export order.
const (
	colProductName    = "Product Name"
	colQuality        = "Quality"
	colRetailPrice    = "Retail Price"
	colWholesalePrice = "Wholesale Price"
	colBrokerPrice    = "Broker Price"
	colStockQuantity  = "Stock Quantity"
)

var priceListColumns = []string{colProductName, colQuality, colRetailPrice, colWholesalePrice, colBrokerPrice, colStockQuantity}

// headerSynonyms lists the accepted spellings per column, lowercased.
var headerSynonyms = map[string][]string{
	colProductName:    {"product name", "product", "name", "item name", "item"},
	colQuality:        {"quality", "grade", "variant", "type"},
	colRetailPrice:    {"retail price", "retail", "mrp", "price"},
	colWholesalePrice: {"wholesale price", "wholesale", "bulk price"},
	colBrokerPrice:    {"broker price", "broker", "agent price", "distributor price"},
	colStockQuantity:  {"stock quantity", "stock", "quantity", "qty"},
}

var requiredPriceColumns = []string{colProductName, colQuality, colRetailPrice, colWholesalePrice, colBrokerPrice}

// ImportResult summarises a price-list upload.
type ImportResult struct {
	Processed       int      `json:"processed"`
	ProductsCreated int      `json:"productsCreated"`
	Created         int      `json:"created"`
	Updated         int      `json:"updated"`
	Skipped         int      `json:"skipped"`
	Warnings        []string `json:"warnings"`
}

type priceRow struct {
	ProductName    string             `validate:"required"`
	Quality        models.QualityTier `validate:"oneof=premium standard economy"`
	RetailPrice    decimal.Decimal    `validate:"gte=0"`
	WholesalePrice decimal.Decimal    `validate:"gte=0"`
	BrokerPrice    decimal.Decimal    `validate:"gte=0"`
	Stock          *decimal.Decimal
}

// mapHeaders resolves each canonical column to its index in the header row.
func mapHeaders(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := index[key]; !seen && key != "" {
			index[key] = i
		}
	}

	cols := make(map[string]int, len(priceListColumns))
	for _, canonical := range priceListColumns {
		for _, syn := range headerSynonyms[canonical] {
			if i, ok := index[syn]; ok {
				cols[canonical] = i
				break
			}
		}
	}

	for _, req := range requiredPriceColumns {
		if _, ok := cols[req]; !ok {
			found := make([]string, 0, len(header))
			for _, h := range header {
				if h = strings.TrimSpace(h); h != "" {
					found = append(found, h)
				}
			}
			return nil, utils.Wrap(utils.ErrMissingColumn, "Missing required column: %s. Columns found: %s", req, strings.Join(found, ", "))
		}
	}
	return cols, nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

// ImportPriceList reads an .xlsx price list and upserts one quality per row.
// The whole file is applied in one transaction.
func (s *CatalogService) ImportPriceList(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, err := export.ReadFirstSheet(r)
	if err != nil {
		return nil, utils.Wrap(utils.ErrInvalidFile, "Could not read spreadsheet: %v", err)
	}
	if len(rows) == 0 {
		return nil, utils.Wrap(utils.ErrNoValidData, "No valid product data found in the file. Please check the format and try again.")
	}

	cols, err := mapHeaders(rows[0])
	if err != nil {
		return nil, err
	}

	parsed := make([]priceRow, 0, len(rows)-1)
	result := &ImportResult{Warnings: []string{}}
	for n, row := range rows[1:] {
		line := n + 2
		name := cellAt(row, cols[colProductName])
		if name == "" {
			result.Skipped++
			continue
		}

		pr := priceRow{
			ProductName: name,
			Quality:     models.QualityTier(strings.ToLower(cellAt(row, cols[colQuality]))),
		}
		for col, dst := range map[string]*decimal.Decimal{
			colRetailPrice:    &pr.RetailPrice,
			colWholesalePrice: &pr.WholesalePrice,
			colBrokerPrice:    &pr.BrokerPrice,
		} {
			v, err := parseAmount(cellAt(row, cols[col]))
			if err != nil {
				return nil, utils.Wrap(utils.ErrInvalidPrice, "Invalid price value for product '%s'. Prices must be numbers.", name)
			}
			*dst = v
		}
		if i, ok := cols[colStockQuantity]; ok {
			if raw := cellAt(row, i); raw != "" {
				stock, err := parseAmount(raw)
				if err != nil || stock.IsNegative() {
					result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: invalid stock '%s' for %s, stock left unchanged", line, raw, name))
				} else {
					pr.Stock = &stock
				}
			}
		}

		if err := utils.ValidateStruct(pr); err != nil {
			if pr.Quality.Valid() {
				return nil, utils.Wrap(utils.ErrInvalidPrice, "Invalid price value for product '%s'. Prices cannot be negative.", name)
			}
			result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: unknown quality '%s' for %s, row skipped", line, pr.Quality, name))
			result.Skipped++
			continue
		}
		parsed = append(parsed, pr)
	}

	if len(parsed) == 0 {
		return nil, utils.Wrap(utils.ErrNoValidData, "No valid product data found in the file. Please check the format and try again.")
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, pr := range parsed {
			if err := s.applyPriceRow(ctx, pr, result); err != nil {
				return err
			}
			result.Processed++
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Price list import failed")
		return nil, err
	}

	log.Info().
		Int("processed", result.Processed).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("products_created", result.ProductsCreated).
		Msg("Price list imported")
	return result, nil
}

func (s *CatalogService) applyPriceRow(ctx context.Context, pr priceRow, result *ImportResult) error {
	product, err := s.store.GetProductByName(ctx, pr.ProductName)
	if errors.Is(err, sql.ErrNoRows) {
		product = &models.Product{Name: pr.ProductName}
		if err := s.store.CreateProduct(ctx, product); err != nil {
			return err
		}
		result.ProductsCreated++
	} else if err != nil {
		return err
	}

	q, err := s.store.FindQuality(ctx, product.ID, pr.Quality)
	if errors.Is(err, sql.ErrNoRows) {
		q = &models.ProductQuality{
			ProductID:      product.ID,
			Quality:        pr.Quality,
			RetailPrice:    pr.RetailPrice,
			WholesalePrice: pr.WholesalePrice,
			BrokerPrice:    pr.BrokerPrice,
			StockQuantity:  decimal.Zero,
		}
		if pr.Stock != nil {
			q.StockQuantity = *pr.Stock
		}
		if err := s.store.CreateQuality(ctx, q); err != nil {
			return err
		}
		result.Created++
		return nil
	} else if err != nil {
		return err
	}

	q.RetailPrice = pr.RetailPrice
	q.WholesalePrice = pr.WholesalePrice
	q.BrokerPrice = pr.BrokerPrice
	if pr.Stock != nil {
		q.StockQuantity = *pr.Stock
	}
	if err := s.store.UpdateQuality(ctx, q); err != nil {
		return err
	}
	result.Updated++
	return nil
}

// ExportPriceList writes every product quality as one spreadsheet row.
func (s *CatalogService) ExportPriceList(ctx context.Context) ([]byte, error) {
	rows, err := s.store.ListPriceRows(ctx)
	if err != nil {
		return nil, err
	}

	t := priceListTable()
	for _, q := range rows {
		t.Rows = append(t.Rows, []interface{}{q.ProductName, string(q.Quality), q.RetailPrice, q.WholesalePrice, q.BrokerPrice, q.StockQuantity})
	}
	return export.WriteXLSX(t)
}

// PriceListTemplate returns an upload template with two example rows.
func (s *CatalogService) PriceListTemplate() ([]byte, error) {
	t := priceListTable()
	t.Rows = [][]interface{}{
		{"Basmati Rice", "premium", decimal.NewFromInt(120), decimal.NewFromInt(110), decimal.NewFromInt(105), decimal.NewFromInt(500)},
		{"Basmati Rice", "standard", decimal.NewFromInt(95), decimal.NewFromInt(88), decimal.NewFromInt(84), decimal.NewFromInt(750)},
	}
	return export.WriteXLSX(t)
}

func priceListTable() *export.Table {
	return &export.Table{
		Title: "Price List",
		Sheet: "Price List",
		Columns: []export.Column{
			{Header: colProductName, Width: 30},
			{Header: colQuality, Width: 14},
			{Header: colRetailPrice, Width: 16, Numeric: true},
			{Header: colWholesalePrice, Width: 16, Numeric: true},
			{Header: colBrokerPrice, Width: 16, Numeric: true},
			{Header: colStockQuantity, Width: 16, Numeric: true},
		},
	}
}
