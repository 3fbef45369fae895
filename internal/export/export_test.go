package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"microcompta/internal/core"
)

func sampleTxs() []core.Transaction {
	return []core.Transaction{
		{
			UserID:      "u1",
			Amount:      decimal.RequireFromString("1200"),
			AmountHT:    decimal.RequireFromString("1000"),
			VatAmount:   decimal.RequireFromString("200"),
			VatRate:     decimal.NewFromInt(20),
			Type:        core.Income,
			Category:    "conseil",
			Description: "Mission mars",
			Date:        core.NewDate(2025, 3, 5),
			ClientName:  "Acme SARL",
			Status:      "completed",
		},
		{
			UserID:   "u1",
			Amount:   decimal.RequireFromString("350.40"),
			AmountHT: decimal.RequireFromString("350.40"),
			Type:     core.Expense,
			Category: "materiel",
			Date:     core.NewDate(2025, 3, 8),
			Status:   "completed",
		},
	}
}

func TestWriteCSVRowCount(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleTxs()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	r := csv.NewReader(&buf)
	r.Comma = ';'
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	// header + 2 transactions + 3 summary rows
	if len(rows) != 6 {
		t.Fatalf("row count = %d, want 6", len(rows))
	}
	if len(rows[0]) != 10 {
		t.Fatalf("column count = %d, want 10", len(rows[0]))
	}
}

func TestWriteCSVFrenchFormatting(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleTxs()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "05/03/2025") {
		t.Error("expected DD/MM/YYYY dates")
	}
	if !strings.Contains(out, "350,40") {
		t.Error("expected decimal comma amounts")
	}
	if !strings.Contains(out, "Recette") || !strings.Contains(out, "Dépense") {
		t.Error("expected French type labels")
	}
	if !strings.Contains(out, "Résultat net") {
		t.Error("expected net summary row")
	}
}

func TestWriteCSVEmptyEmitsHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	r := csv.NewReader(&buf)
	r.Comma = ';'
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("row count = %d, want header only", len(rows))
	}
}

func TestWriteHTMLIsSelfContained(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	if err := WriteHTML(&buf, sampleTxs(), at); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "<!DOCTYPE html>") || !strings.Contains(out, "<style>") {
		t.Error("expected a self-contained document with inline styles")
	}
	if strings.Contains(out, "src=") || strings.Contains(out, "href=") {
		t.Error("expected no external references")
	}
	if !strings.Contains(out, "Mission mars") || !strings.Contains(out, "Acme SARL") {
		t.Error("expected transaction data in output")
	}
	if !strings.Contains(out, "10/03/2025 09:30") {
		t.Error("expected generation timestamp")
	}
}

func TestWriteHTMLEscapesUserData(t *testing.T) {
	txs := sampleTxs()
	txs[0].Description = `<script>alert("x")</script>`

	var buf bytes.Buffer
	if err := WriteHTML(&buf, txs, time.Now()); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	if strings.Contains(buf.String(), "<script>alert") {
		t.Error("expected HTML escaping of user data")
	}
}

func TestWriteXLSXWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleTxs()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetTransactions)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("transaction rows = %d, want header + 2", len(rows))
	}
	if rows[1][3] != "Mission mars" {
		t.Fatalf("description cell = %q", rows[1][3])
	}

	summary, err := f.GetRows(sheetSummary)
	if err != nil {
		t.Fatalf("GetRows summary: %v", err)
	}
	if len(summary) != 5 {
		t.Fatalf("summary rows = %d, want 5", len(summary))
	}
	if summary[0][0] != "Total recettes (TTC)" {
		t.Fatalf("summary label = %q", summary[0][0])
	}
}

func TestFormatHelpers(t *testing.T) {
	if frAmount(decimal.RequireFromString("1234.5")) != "1234,50" {
		t.Error("frAmount should use two decimals with a comma")
	}

	cases := []struct {
		format Format
		valid  bool
	}{
		{FormatCSV, true},
		{FormatHTML, true},
		{FormatXLSX, true},
		{Format("pdf"), false},
	}
	for _, tc := range cases {
		if tc.format.Valid() != tc.valid {
			t.Errorf("%s.Valid() = %v, want %v", tc.format, tc.format.Valid(), tc.valid)
		}
	}
	if FormatCSV.Extension() != ".csv" {
		t.Error("unexpected extension")
	}
}
