// Package export renders tabular data and invoices as spreadsheets and PDFs.
package export

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Column describes one table column. Numeric columns are right aligned and
// formatted with two decimals.
type Column struct {
	Header  string
	Width   float64
	Numeric bool
}

// Table is a report ready to be written to xlsx or pdf. Cells hold strings,
// ints or decimal.Decimal values. A nil Totals skips the totals row.
type Table struct {
	Title    string
	Subtitle string
	Sheet    string
	Columns  []Column
	Rows     [][]interface{}
	Totals   []interface{}
}

// Headers returns the column headers in order.
func (t *Table) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Header
	}
	return out
}

// FormatAmount renders d with thousands separators and two decimals.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

func cellText(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case decimal.Decimal:
		return FormatAmount(x)
	case *decimal.Decimal:
		if x == nil {
			return ""
		}
		return FormatAmount(*x)
	default:
		return fmt.Sprint(x)
	}
}
