package export

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"microcompta/internal/core"
)

// The document is self-contained so it can be archived or printed to PDF
// without external assets.
var htmlTmpl = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<title>Livre des recettes et dépenses</title>
<style>
body { font-family: "Helvetica Neue", Arial, sans-serif; margin: 2rem; color: #1a1a1a; }
h1 { font-size: 1.4rem; }
p.meta { color: #666; font-size: 0.85rem; }
table { border-collapse: collapse; width: 100%; font-size: 0.9rem; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; }
th { background: #f2f2f2; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
tr.expense td { color: #8a2b2b; }
tfoot td { font-weight: bold; background: #fafafa; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
<h1>Livre des recettes et dépenses</h1>
<p class="meta">Généré le {{.GeneratedAt}} — {{len .Rows}} écriture(s)</p>
<table>
<thead>
<tr><th>Date</th><th>Type</th><th>Catégorie</th><th>Description</th><th>Client</th><th>Montant TTC</th><th>Montant HT</th><th>TVA</th><th>Statut</th></tr>
</thead>
<tbody>
{{range .Rows}}<tr class="{{.Class}}"><td>{{.Date}}</td><td>{{.Type}}</td><td>{{.Category}}</td><td>{{.Description}}</td><td>{{.Client}}</td><td class="num">{{.Amount}}</td><td class="num">{{.AmountHT}}</td><td class="num">{{.Vat}}</td><td>{{.Status}}</td></tr>
{{end}}</tbody>
<tfoot>
<tr><td colspan="5">Total recettes</td><td class="num">{{.TotalRevenue}}</td><td></td><td class="num">{{.TotalVat}}</td><td></td></tr>
<tr><td colspan="5">Total dépenses</td><td class="num">{{.TotalExpenses}}</td><td></td><td></td><td></td></tr>
<tr><td colspan="5">Résultat net</td><td class="num">{{.Net}}</td><td></td><td></td><td></td></tr>
</tfoot>
</table>
</body>
</html>
`))

type htmlRow struct {
	Class       string
	Date        string
	Type        string
	Category    string
	Description string
	Client      string
	Amount      string
	AmountHT    string
	Vat         string
	Status      string
}

// WriteHTML renders a printable listing of the transactions.
func WriteHTML(w io.Writer, txs []core.Transaction, generatedAt time.Time) error {
	rows := make([]htmlRow, 0, len(txs))
	for _, tx := range txs {
		class := "income"
		if tx.Type == core.Expense {
			class = "expense"
		}
		rows = append(rows, htmlRow{
			Class:       class,
			Date:        tx.Date.Format("02/01/2006"),
			Type:        typeLabel(tx.Type),
			Category:    tx.Category,
			Description: tx.Description,
			Client:      tx.ClientName,
			Amount:      frAmount(tx.Amount),
			AmountHT:    frAmount(tx.AmountHT),
			Vat:         frAmount(tx.VatAmount),
			Status:      tx.Status,
		})
	}

	t := sum(txs)
	data := struct {
		GeneratedAt   string
		Rows          []htmlRow
		TotalRevenue  string
		TotalExpenses string
		TotalVat      string
		Net           string
	}{
		GeneratedAt:   generatedAt.Format("02/01/2006 15:04"),
		Rows:          rows,
		TotalRevenue:  frAmount(t.Revenue),
		TotalExpenses: frAmount(t.Expenses),
		TotalVat:      frAmount(t.Vat),
		Net:           frAmount(t.Net()),
	}

	if err := htmlTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render html export: %w", err)
	}
	return nil
}
