package export

import (
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

var invoiceColumns = []Column{
	{Header: "#", Width: 6},
	{Header: "Product", Width: 46},
	{Header: "Quality", Width: 20},
	{Header: "Quantity (Kg)", Width: 22, Numeric: true},
	{Header: "Unit Price", Width: 24, Numeric: true},
	{Header: "Discount", Width: 22, Numeric: true},
	{Header: "Subtotal", Width: 26, Numeric: true},
}

// InvoicePDF renders a portrait A4 invoice with the business letterhead,
// the customer block, the item table and the totals.
func InvoicePDF(lh Letterhead, inv *models.Invoice, items []models.InvoiceItem) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, pdfBottomMargin)
	pdf.SetTitle("Invoice "+inv.InvoiceNumber, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(120, 8, tr(lh.Name), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, "INVOICE", "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{lh.Address, joinNonEmpty(lh.Phone, lh.Email)} {
		if line != "" {
			pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	if lh.TaxID != "" {
		pdf.CellFormat(0, 5, tr("Tax ID: "+lh.TaxID), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(95, 6, "Bill To", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Invoice Details", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)

	left := []string{inv.CustomerName, inv.CustomerPhone, inv.CustomerType.Label()}
	right := []string{
		"Number: " + inv.InvoiceNumber,
		"Date: " + inv.CreatedAt.Format("02 Jan 2006"),
		"Payment: " + string(inv.PaymentType),
		"Status: " + inv.Status.Label(),
	}
	if due := inv.EffectiveDueDate(); due != nil {
		right = append(right, "Due: "+due.Format("02 Jan 2006"))
	}
	for i := 0; i < len(right) || i < len(left); i++ {
		l, r := "", ""
		if i < len(left) {
			l = left[i]
		}
		if i < len(right) {
			r = right[i]
		}
		pdf.CellFormat(95, 5, tr(l), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, tr(r), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	pageW, _ := pdf.GetPageSize()
	ml, _, mr, _ := pdf.GetMargins()
	widths := columnWidths(invoiceColumns, pageW-ml-mr)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(217, 225, 242)
	for i, col := range invoiceColumns {
		pdf.CellFormat(widths[i], pdfRowHeight, col.Header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for n, it := range items {
		values := []string{
			strconv.Itoa(n + 1),
			it.ProductName,
			string(it.Quality),
			it.Quantity.StringFixed(3),
			FormatAmount(it.UnitPrice),
			FormatAmount(it.DiscountAmount),
			FormatAmount(it.Subtotal),
		}
		for i, v := range values {
			align := "L"
			if invoiceColumns[i].Numeric {
				align = "R"
			}
			pdf.CellFormat(widths[i], pdfRowHeight, tr(v), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)

	labelW := widths[0] + widths[1] + widths[2] + widths[3] + widths[4] + widths[5]
	totals := []struct {
		label string
		value decimal.Decimal
		bold  bool
	}{
		{"Subtotal", inv.Subtotal, false},
		{discountLabel(inv), inv.DiscountAmount, false},
		{fmt.Sprintf("Tax (%s%%)", inv.TaxPercentage.String()), inv.TaxAmount, false},
		{"Total", inv.Total, true},
		{"Amount Paid", inv.AmountPaid, false},
		{"Amount Due", inv.AmountDue(), true},
	}
	for _, t := range totals {
		style := ""
		if t.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(labelW, 6, t.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[6], 6, FormatAmount(t.value), "", 1, "R", false, 0, "")
	}

	if inv.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr("Notes: "+inv.Notes), "", "L", false)
	}

	return output(pdf)
}

func discountLabel(inv *models.Invoice) string {
	if inv.DiscountPercentage.IsPositive() {
		return fmt.Sprintf("Discount (%s%%)", inv.DiscountPercentage.String())
	}
	return "Discount"
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " | " + b
}
