package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/export"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	buf, err := export.NewWorkbookBuffer(rows)
	require.NoError(t, err)
	return buf
}

func TestCatalog_ProductNamesAreUniqueIgnoringCase(t *testing.T) {
	f := newFixture(t)

	p, err := f.catalog.CreateProduct(f.ctx, &ProductRequest{Name: "  Basmati Rice "})
	require.NoError(t, err)
	assert.Equal(t, "Basmati Rice", p.Name)

	_, err = f.catalog.CreateProduct(f.ctx, &ProductRequest{Name: "BASMATI RICE"})
	require.ErrorIs(t, err, utils.ErrDuplicateProduct)

	other, err := f.catalog.CreateProduct(f.ctx, &ProductRequest{Name: "Toor Dal"})
	require.NoError(t, err)
	_, err = f.catalog.UpdateProduct(f.ctx, other.ID, &ProductRequest{Name: "basmati rice"})
	require.ErrorIs(t, err, utils.ErrDuplicateProduct)

	renamed, err := f.catalog.UpdateProduct(f.ctx, p.ID, &ProductRequest{Name: "basmati rice", Description: "Long grain"})
	require.NoError(t, err, "a product may change the case of its own name")
	assert.Equal(t, "Long grain", renamed.Description)
}

func TestCatalog_QualitiesAndPricing(t *testing.T) {
	f := newFixture(t)
	p, err := f.catalog.CreateProduct(f.ctx, &ProductRequest{Name: "Basmati Rice"})
	require.NoError(t, err)

	req := QualityRequest{Quality: " Premium ", RetailPrice: d("120"), WholesalePrice: d("110"), BrokerPrice: d("105"), StockQuantity: d("50")}
	q, err := f.catalog.CreateQuality(f.ctx, p.ID, &req)
	require.NoError(t, err)
	assert.Equal(t, models.QualityPremium, q.Quality)

	dup := QualityRequest{Quality: "premium", RetailPrice: d("1"), WholesalePrice: d("1"), BrokerPrice: d("1")}
	_, err = f.catalog.CreateQuality(f.ctx, p.ID, &dup)
	require.ErrorIs(t, err, utils.ErrDuplicateQuality)

	bad := QualityRequest{Quality: "gold", RetailPrice: d("1"), WholesalePrice: d("1"), BrokerPrice: d("1")}
	_, err = f.catalog.CreateQuality(f.ctx, p.ID, &bad)
	require.ErrorIs(t, err, utils.ErrInvalidRequest)

	tests := []struct {
		ctype models.CustomerType
		want  string
	}{
		{models.CustomerRetail, "120"},
		{models.CustomerWholesale, "110"},
		{models.CustomerDistributor, "105"},
		{"unknown", "120"},
	}
	for _, tt := range tests {
		t.Run(string(tt.ctype), func(t *testing.T) {
			price, err := f.catalog.PriceFor(f.ctx, q.ID, tt.ctype)
			require.NoError(t, err)
			assert.Equal(t, tt.want, price.Price.String())
		})
	}

	got, err := f.catalog.GetProduct(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Qualities, 1)
}

func TestCatalog_DeleteReferencedProduct(t *testing.T) {
	f := newFixture(t)
	rice := f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "50")
	c := f.customer("Asha Stores", "9800000001", models.CustomerRetail, "0")
	f.sell(c, rice, "1", models.PaymentTypeCash, "")

	require.ErrorIs(t, f.catalog.DeleteProduct(f.ctx, rice.ProductID), utils.ErrProductInUse)
	require.ErrorIs(t, f.catalog.DeleteQuality(f.ctx, rice.ID), utils.ErrProductInUse)

	spare := f.quality("Toor Dal", models.QualityEconomy, "60", "55", "50", "10")
	require.NoError(t, f.catalog.DeleteProduct(f.ctx, spare.ProductID))
	require.ErrorIs(t, f.catalog.DeleteProduct(f.ctx, spare.ProductID), utils.ErrProductNotFound)
}

func TestCatalog_PriceListRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.quality("Basmati Rice", models.QualityPremium, "120", "110", "105", "500")
	f.quality("Basmati Rice", models.QualityEconomy, "80.40", "75", "70.5", "12.25")
	f.quality("Toor Dal", models.QualityStandard, "95", "90", "88", "0")

	data, err := f.catalog.ExportPriceList(f.ctx)
	require.NoError(t, err)

	before, err := f.store.Catalog().ListPriceRows(f.ctx)
	require.NoError(t, err)

	res, err := f.catalog.ImportPriceList(f.ctx, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 3, res.Updated)
	assert.Zero(t, res.Created)
	assert.Zero(t, res.ProductsCreated)
	assert.Empty(t, res.Warnings)

	after, err := f.store.Catalog().ListPriceRows(f.ctx)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ProductName, after[i].ProductName)
		assert.Equal(t, before[i].Quality, after[i].Quality)
		assert.True(t, before[i].RetailPrice.Equal(after[i].RetailPrice), before[i].ProductName)
		assert.True(t, before[i].WholesalePrice.Equal(after[i].WholesalePrice))
		assert.True(t, before[i].BrokerPrice.Equal(after[i].BrokerPrice))
		assert.True(t, before[i].StockQuantity.Equal(after[i].StockQuantity))
	}
}

func TestCatalog_ImportUpsertsWithSynonymHeaders(t *testing.T) {
	f := newFixture(t)
	f.quality("Basmati Rice", models.QualityPremium, "100", "90", "85", "40")

	buf := workbook(t,
		[]interface{}{"Item", "Grade", "MRP", "Wholesale", "Broker", "Qty"},
		[]interface{}{"basmati rice", "PREMIUM", "1,250.50", 115, 110, ""},
		[]interface{}{"Toor Dal", "standard", 95, 90, 88, 25},
		[]interface{}{"Toor Dal", "gold", 95, 90, 88, 25},
		[]interface{}{"", "standard", 1, 1, 1, 1},
		[]interface{}{"Moong Dal", "economy", 70, 65, 60, "lots"},
	)

	res, err := f.catalog.ImportPriceList(f.ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.ProductsCreated)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, res.Warnings, 2)

	products, total, err := f.catalog.ListProducts(f.ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	for _, p := range products {
		if p.Name != "Basmati Rice" {
			continue
		}
		require.Len(t, p.Qualities, 1)
		assert.Equal(t, "1250.5", p.Qualities[0].RetailPrice.String())
		assert.Equal(t, "40", p.Qualities[0].StockQuantity.String(), "blank stock leaves stock unchanged")
	}
}

func TestCatalog_ImportRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name string
		rows [][]interface{}
		want error
		msg  string
	}{
		{
			name: "missing column",
			rows: [][]interface{}{{"Product Name", "Quality", "Retail Price", "Wholesale Price"}, {"Rice", "premium", 1, 1}},
			want: utils.ErrMissingColumn,
			msg:  "Missing required column: Broker Price",
		},
		{
			name: "no valid rows",
			rows: [][]interface{}{{"Product Name", "Quality", "Retail Price", "Wholesale Price", "Broker Price"}, {"", "premium", 1, 1, 1}},
			want: utils.ErrNoValidData,
		},
		{
			name: "non numeric price",
			rows: [][]interface{}{{"Product Name", "Quality", "Retail Price", "Wholesale Price", "Broker Price"}, {"Rice", "premium", "cheap", 1, 1}},
			want: utils.ErrInvalidPrice,
			msg:  "Invalid price value for product 'Rice'",
		},
		{
			name: "negative price",
			rows: [][]interface{}{{"Product Name", "Quality", "Retail Price", "Wholesale Price", "Broker Price"}, {"Rice", "premium", 1, -1, 1}},
			want: utils.ErrInvalidPrice,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.catalog.ImportPriceList(f.ctx, workbook(t, tt.rows...))
			require.ErrorIs(t, err, tt.want)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}

			products, _, err := f.catalog.ListProducts(f.ctx, repository.ProductFilter{})
			require.NoError(t, err)
			assert.Empty(t, products, "nothing is written for a rejected file")
		})
	}

	f := newFixture(t)
	_, err := f.catalog.ImportPriceList(f.ctx, bytes.NewReader([]byte("not a workbook")))
	require.ErrorIs(t, err, utils.ErrInvalidFile)
}
