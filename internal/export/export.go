// Package export renders transaction listings for accountants: CSV and
// XLSX for spreadsheet tools, HTML for printing.
package export

import (
	"strings"

	"github.com/shopspring/decimal"

	"microcompta/internal/core"
)

// Format identifies an export output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatXLSX Format = "xlsx"
)

func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatHTML || f == FormatXLSX
}

// ContentType returns the MIME type to serve the format with.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// Extension returns the filename extension, dot included.
func (f Format) Extension() string {
	return "." + string(f)
}

type totals struct {
	Revenue  decimal.Decimal
	Expenses decimal.Decimal
	Vat      decimal.Decimal
}

func (t totals) Net() decimal.Decimal {
	return t.Revenue.Sub(t.Expenses)
}

func sum(txs []core.Transaction) totals {
	t := totals{Revenue: decimal.Zero, Expenses: decimal.Zero, Vat: decimal.Zero}
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			t.Revenue = t.Revenue.Add(tx.Amount.Abs())
			t.Vat = t.Vat.Add(tx.VatAmount.Abs())
		case core.Expense:
			t.Expenses = t.Expenses.Add(tx.Amount.Abs())
		}
	}
	return t
}

// frAmount renders a decimal with a French decimal comma, two places.
func frAmount(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func typeLabel(t core.TransactionType) string {
	if t == core.Expense {
		return "Dépense"
	}
	return "Recette"
}
