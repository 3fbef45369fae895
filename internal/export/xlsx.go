package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"microcompta/internal/core"
)

const (
	sheetTransactions = "Transactions"
	sheetSummary      = "Résumé"
)

// WriteXLSX writes a workbook with the transaction listing and a summary
// sheet. Amounts are written as numbers so spreadsheet formulas work on
// them directly.
func WriteXLSX(w io.Writer, txs []core.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetTransactions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	headers := []string{"Date", "Type", "Catégorie", "Description", "Client",
		"Montant TTC", "Montant HT", "TVA", "Taux TVA (%)", "Statut"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetTransactions, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, tx := range txs {
		row := i + 2
		values := []any{
			tx.Date.Format("02/01/2006"),
			typeLabel(tx.Type),
			tx.Category,
			tx.Description,
			tx.ClientName,
			tx.Amount.InexactFloat64(),
			tx.AmountHT.InexactFloat64(),
			tx.VatAmount.InexactFloat64(),
			tx.VatRate.InexactFloat64(),
			tx.Status,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheetTransactions, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	t := sum(txs)
	summary := [][2]any{
		{"Total recettes (TTC)", t.Revenue.InexactFloat64()},
		{"Total dépenses (TTC)", t.Expenses.InexactFloat64()},
		{"TVA collectée", t.Vat.InexactFloat64()},
		{"Résultat net", t.Net().InexactFloat64()},
		{"Nombre d'écritures", len(txs)},
	}
	for i, pair := range summary {
		row := fmt.Sprint(i + 1)
		if err := f.SetCellValue(sheetSummary, "A"+row, pair[0]); err != nil {
			return fmt.Errorf("write summary label: %w", err)
		}
		if err := f.SetCellValue(sheetSummary, "B"+row, pair[1]); err != nil {
			return fmt.Errorf("write summary value: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
