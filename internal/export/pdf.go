package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	pdfRowHeight    = 7.0
	pdfBottomMargin = 12.0
)

// Letterhead is the business identity printed on every document.
type Letterhead struct {
	Name    string
	Address string
	Phone   string
	Email   string
	TaxID   string
}

// WritePDF renders t as a landscape A4 table. The header row repeats on every
// page and the totals row closes the table.
func WritePDF(t *Table, lh Letterhead) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(false, pdfBottomMargin)
	pdf.SetTitle(t.Title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	widths := columnWidths(t.Columns, pageW-left-right)

	pdf.AddPage()
	if lh.Name != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 6, tr(lh.Name), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(t.Title), "", 1, "C", false, 0, "")
	if t.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(t.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(217, 225, 242)
		for i, col := range t.Columns {
			pdf.CellFormat(widths[i], pdfRowHeight, tr(col.Header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	row := func(values []interface{}) {
		if pdf.GetY()+pdfRowHeight > pageH-pdfBottomMargin {
			pdf.AddPage()
			header()
		}
		for i := range t.Columns {
			var v interface{}
			if i < len(values) {
				v = values[i]
			}
			align := "L"
			if t.Columns[i].Numeric {
				align = "R"
			}
			pdf.CellFormat(widths[i], pdfRowHeight, tr(cellText(v)), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	header()
	for _, r := range t.Rows {
		row(r)
	}
	if t.Totals != nil {
		pdf.SetFont("Helvetica", "B", 9)
		row(t.Totals)
	}

	return output(pdf)
}

func columnWidths(cols []Column, usable float64) []float64 {
	sum := 0.0
	for _, c := range cols {
		sum += weight(c)
	}
	out := make([]float64, len(cols))
	for i, c := range cols {
		out[i] = usable * weight(c) / sum
	}
	return out
}

func weight(c Column) float64 {
	if c.Width > 0 {
		return c.Width
	}
	return 16
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
