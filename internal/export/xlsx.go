package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const amountFormat = "#,##0.00"

// WriteXLSX renders t as a single-sheet workbook: bold centered header, one
// row per record, an optional bold totals row.
func WriteXLSX(t *Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Sheet
	if sheet == "" {
		sheet = "Report"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	numFmt := amountFormat
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return nil, err
	}
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return nil, err
	}
	totalsStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: []excelize.Border{{Type: "top", Color: "000000", Style: 1}},
	})
	if err != nil {
		return nil, err
	}
	totalsAmountStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		CustomNumFmt: &numFmt,
		Border:       []excelize.Border{{Type: "top", Color: "000000", Style: 1}},
	})
	if err != nil {
		return nil, err
	}

	for i, col := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col.Header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)

		name, _ := excelize.ColumnNumberToName(i + 1)
		width := col.Width
		if width == 0 {
			width = 16
		}
		f.SetColWidth(sheet, name, name, width)
	}

	for r, row := range t.Rows {
		if err := writeRow(f, sheet, r+2, t.Columns, row, amountStyle); err != nil {
			return nil, err
		}
	}

	if t.Totals != nil {
		rowNum := len(t.Rows) + 2
		if err := writeRow(f, sheet, rowNum, t.Columns, t.Totals, totalsAmountStyle); err != nil {
			return nil, err
		}
		for i, col := range t.Columns {
			if !col.Numeric {
				cell, _ := excelize.CoordinatesToCellName(i+1, rowNum)
				f.SetCellStyle(sheet, cell, cell, totalsStyle)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, cols []Column, row []interface{}, amountStyle int) error {
	for i, v := range row {
		if i >= len(cols) {
			break
		}
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		switch x := v.(type) {
		case decimal.Decimal:
			f.SetCellValue(sheet, cell, x.InexactFloat64())
		case nil:
			continue
		default:
			f.SetCellValue(sheet, cell, x)
		}
		if cols[i].Numeric {
			f.SetCellStyle(sheet, cell, cell, amountStyle)
		}
	}
	return nil
}

// ReadFirstSheet returns the raw cell values of the first worksheet. Numeric
// cells come back unformatted so "1200" is never read as "1,200.00".
func ReadFirstSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

// NewWorkbookBuffer writes rows to a fresh workbook. It is used to build
// templates and fixtures where styling does not matter.
func NewWorkbookBuffer(rows [][]interface{}) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			f.SetCellValue("Sheet1", cell, v)
		}
	}
	return f.WriteToBuffer()
}
