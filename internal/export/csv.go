package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"microcompta/internal/core"
)

var csvHeader = []string{
	"Date", "Type", "Catégorie", "Description", "Client",
	"Montant TTC", "Montant HT", "TVA", "Taux TVA (%)", "Statut",
}

// WriteCSV writes a semicolon-delimited listing with French decimal
// commas, ending with three summary rows. Empty input produces the header
// only.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, tx := range txs {
		record := []string{
			tx.Date.Format("02/01/2006"),
			typeLabel(tx.Type),
			tx.Category,
			tx.Description,
			tx.ClientName,
			frAmount(tx.Amount),
			frAmount(tx.AmountHT),
			frAmount(tx.VatAmount),
			frAmount(tx.VatRate),
			tx.Status,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	if len(txs) > 0 {
		t := sum(txs)
		summary := [][]string{
			{"", "", "", "", "Total recettes", frAmount(t.Revenue), "", frAmount(t.Vat), "", ""},
			{"", "", "", "", "Total dépenses", frAmount(t.Expenses), "", "", "", ""},
			{"", "", "", "", "Résultat net", frAmount(t.Net()), "", "", "", ""},
		}
		for _, row := range summary {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv summary: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
