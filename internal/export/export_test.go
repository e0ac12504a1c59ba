package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"12.5", "12.50"},
		{"999.999", "1,000.00"},
		{"1234567.891", "1,234,567.89"},
		{"-4500", "-4,500.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func sampleTable() *Table {
	return &Table{
		Title: "Sales Report",
		Sheet: "Sales",
		Columns: []Column{
			{Header: "Date"},
			{Header: "Bills Generated"},
			{Header: "Total Sale", Numeric: true},
		},
		Rows: [][]interface{}{
			{"2026-10-01", 3, decimal.NewFromInt(1500)},
			{"2026-10-02", 1, decimal.RequireFromString("249.50")},
		},
		Totals: []interface{}{"Total", 4, decimal.RequireFromString("1749.50")},
	}
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	data, err := WriteXLSX(sampleTable())
	require.NoError(t, err)

	rows, err := ReadFirstSheet(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Date", "Bills Generated", "Total Sale"}, rows[0])
	assert.Equal(t, "2026-10-01", rows[1][0])
	assert.Equal(t, "1500", rows[1][2])
	assert.Equal(t, "Total", rows[3][0])
	assert.Equal(t, "1749.5", rows[3][2])
}

func TestWritePDF(t *testing.T) {
	data, err := WritePDF(sampleTable(), Letterhead{Name: "Green Grocers"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestWritePDF_PaginatesLongTables(t *testing.T) {
	tbl := sampleTable()
	for i := 0; i < 200; i++ {
		tbl.Rows = append(tbl.Rows, []interface{}{"2026-10-03", 1, decimal.NewFromInt(10)})
	}
	data, err := WritePDF(tbl, Letterhead{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestInvoicePDF(t *testing.T) {
	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	inv := &models.Invoice{
		InvoiceNumber:  "INV-1A2B3C4D",
		PaymentType:    models.PaymentTypeCredit,
		Status:         models.InvoicePendingPayment,
		Subtotal:       decimal.NewFromInt(1000),
		TaxPercentage:  decimal.NewFromInt(5),
		TaxAmount:      decimal.NewFromInt(50),
		Total:          decimal.NewFromInt(1050),
		PaymentDueDate: &due,
		CustomerName:   "Ravi Traders",
		CustomerType:   models.CustomerWholesale,
		CreatedAt:      time.Date(2026, 10, 2, 10, 0, 0, 0, time.UTC),
		Notes:          "Deliver before noon",
	}
	items := []models.InvoiceItem{{
		ProductName: "Basmati Rice",
		Quality:     models.QualityPremium,
		Quantity:    decimal.NewFromInt(10),
		UnitPrice:   decimal.NewFromInt(100),
		Subtotal:    decimal.NewFromInt(1000),
	}}

	data, err := InvoicePDF(Letterhead{Name: "Green Grocers", Phone: "555-0101"}, inv, items)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}
