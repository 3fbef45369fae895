package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"microcompta/internal/core"
	"microcompta/internal/ledger"
)

func seedTx(t *testing.T, s *Store, userID, category string, txType core.TransactionType, amount string, day int) core.Transaction {
	t.Helper()
	tx, err := s.Create(context.Background(), core.Transaction{
		UserID:   userID,
		Amount:   decimal.RequireFromString(amount),
		Type:     txType,
		Category: category,
		Date:     core.NewDate(2025, 3, day),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return tx
}

func TestCreateAssignsIDAndCreatedAt(t *testing.T) {
	s := New()
	tx := seedTx(t, s, "u1", "conseil", core.Income, "100", 1)
	if tx.ID == "" {
		t.Fatal("expected generated ID")
	}
	if tx.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}

func TestGetScopesByUser(t *testing.T) {
	s := New()
	tx := seedTx(t, s, "u1", "conseil", core.Income, "100", 1)

	if _, err := s.Get(context.Background(), "u1", tx.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := s.Get(context.Background(), "u2", tx.ID); err != core.ErrNotFound {
		t.Fatalf("foreign Get error = %v, want ErrNotFound", err)
	}
}

func TestListOrderingAndPagination(t *testing.T) {
	s := New()
	seedTx(t, s, "u1", "conseil", core.Income, "10", 3)
	seedTx(t, s, "u1", "conseil", core.Income, "20", 9)
	seedTx(t, s, "u1", "conseil", core.Income, "30", 6)

	items, total, err := s.List(context.Background(), "u1", ledger.Filter{PageSize: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(items) != 2 {
		t.Fatalf("page size = %d, want 2", len(items))
	}
	if items[0].Date.Day() != 9 || items[1].Date.Day() != 6 {
		t.Fatalf("expected newest-first order, got days %d, %d", items[0].Date.Day(), items[1].Date.Day())
	}

	items, _, err = s.List(context.Background(), "u1", ledger.Filter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(items) != 1 || items[0].Date.Day() != 3 {
		t.Fatalf("unexpected second page: %+v", items)
	}
}

func TestListFilters(t *testing.T) {
	s := New()
	seedTx(t, s, "u1", "Conseil", core.Income, "100", 1)
	seedTx(t, s, "u1", "materiel", core.Expense, "40", 2)
	tx := core.Transaction{
		UserID:      "u1",
		Amount:      decimal.RequireFromString("60"),
		Type:        core.Income,
		Category:    "formation",
		Description: "Atelier Go avance",
		Date:        core.NewDate(2025, 3, 5),
	}
	if _, err := s.Create(context.Background(), tx); err != nil {
		t.Fatalf("Create: %v", err)
	}

	cases := []struct {
		name   string
		filter ledger.Filter
		want   int
	}{
		{"by type", ledger.Filter{Type: core.Expense}, 1},
		{"by category fold", ledger.Filter{Categories: []string{"conseil"}}, 1},
		{"by search", ledger.Filter{Search: "atelier"}, 1},
		{"by date range", ledger.Filter{From: core.NewDate(2025, 3, 2), To: core.NewDate(2025, 3, 5)}, 2},
		{"no match", ledger.Filter{Search: "introuvable"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, total, err := s.List(context.Background(), "u1", tc.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if total != tc.want {
				t.Fatalf("total = %d, want %d", total, tc.want)
			}
		})
	}
}

func TestUpdateAppliesPatch(t *testing.T) {
	s := New()
	tx := seedTx(t, s, "u1", "conseil", core.Income, "100", 1)

	amount := decimal.RequireFromString("250.50")
	category := "formation"
	updated, err := s.Update(context.Background(), "u1", tx.ID, ledger.Patch{
		Amount:   &amount,
		Category: &category,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Amount.Equal(amount) || updated.Category != "formation" {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.Type != core.Income {
		t.Fatalf("untouched field changed: %s", updated.Type)
	}
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	s := New()
	tx := seedTx(t, s, "u1", "conseil", core.Income, "100", 1)

	badType := core.TransactionType("garbage")
	if _, err := s.Update(context.Background(), "u1", tx.ID, ledger.Patch{Type: &badType}); err != core.ErrInvalidType {
		t.Fatalf("bad type error = %v, want ErrInvalidType", err)
	}
	empty := ""
	if _, err := s.Update(context.Background(), "u1", tx.ID, ledger.Patch{Category: &empty}); err != core.ErrEmptyCategory {
		t.Fatalf("empty category error = %v, want ErrEmptyCategory", err)
	}
	negative := decimal.RequireFromString("-5")
	if _, err := s.Update(context.Background(), "u1", tx.ID, ledger.Patch{Amount: &negative}); err != core.ErrInvalidAmount {
		t.Fatalf("negative amount error = %v, want ErrInvalidAmount", err)
	}

	got, err := s.Get(context.Background(), "u1", tx.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Type != core.Income || got.Category != "conseil" || !got.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("rejected patch mutated the row: %+v", got)
	}
}

func TestBulkDeleteSkipsForeignRows(t *testing.T) {
	s := New()
	mine := seedTx(t, s, "u1", "conseil", core.Income, "100", 1)
	other := seedTx(t, s, "u2", "conseil", core.Income, "100", 1)

	deleted, err := s.BulkDelete(context.Background(), "u1", []string{mine.ID, other.ID, "missing"})
	if err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	if _, err := s.Get(context.Background(), "u2", other.ID); err != nil {
		t.Fatalf("foreign row should survive: %v", err)
	}
}

func TestSumYearRevenueCountsIncomeOnly(t *testing.T) {
	s := New()
	seedTx(t, s, "u1", "conseil", core.Income, "1200.50", 1)
	seedTx(t, s, "u1", "conseil", core.Income, "799.50", 2)
	seedTx(t, s, "u1", "materiel", core.Expense, "500", 3)
	if _, err := s.Create(context.Background(), core.Transaction{
		UserID:   "u1",
		Amount:   decimal.RequireFromString("9999"),
		Type:     core.Income,
		Category: "conseil",
		Date:     core.NewDate(2024, 12, 31),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	total, err := s.SumYearRevenue(context.Background(), "u1", 2025)
	if err != nil {
		t.Fatalf("SumYearRevenue: %v", err)
	}
	if want := decimal.RequireFromString("2000"); !total.Equal(want) {
		t.Fatalf("total = %s, want %s", total, want)
	}
}

func TestRecentTransactionsBounded(t *testing.T) {
	s := New()
	for day := 1; day <= 5; day++ {
		seedTx(t, s, "u1", "conseil", core.Income, "10", day)
	}
	recent, err := s.RecentTransactions(context.Background(), "u1", 3)
	if err != nil {
		t.Fatalf("RecentTransactions: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	if recent[0].Date.Day() != 5 {
		t.Fatalf("expected newest first, got day %d", recent[0].Date.Day())
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := New()
	if _, err := s.GetSettings(context.Background(), "u1"); err != core.ErrNotFound {
		t.Fatalf("GetSettings before save = %v, want ErrNotFound", err)
	}

	settings := core.DefaultVatSettings("u1")
	settings.Regime = core.RegimeReelSimplifie
	if err := s.SaveSettings(context.Background(), settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	got, err := s.GetSettings(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.Regime != core.RegimeReelSimplifie {
		t.Fatalf("regime = %s, want %s", got.Regime, core.RegimeReelSimplifie)
	}
}

func TestUpdateYearRevenueCreatesDefaults(t *testing.T) {
	s := New()
	at := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	revenue := decimal.RequireFromString("31250.75")
	if err := s.UpdateYearRevenue(context.Background(), "u1", revenue, at); err != nil {
		t.Fatalf("UpdateYearRevenue: %v", err)
	}

	got, err := s.GetSettings(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if !got.CurrentYearRevenue.Equal(revenue) {
		t.Fatalf("revenue = %s, want %s", got.CurrentYearRevenue, revenue)
	}
	if got.Regime != core.RegimeFranchise {
		t.Fatalf("expected defaults for implicit settings, got regime %s", got.Regime)
	}
	if !got.RevenueUpdatedAt.Equal(at) {
		t.Fatalf("RevenueUpdatedAt = %s, want %s", got.RevenueUpdatedAt, at)
	}
}

func TestStaleRevenueUsers(t *testing.T) {
	s := New()
	old := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	fresh := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	if err := s.UpdateYearRevenue(context.Background(), "stale", decimal.Zero, old); err != nil {
		t.Fatalf("UpdateYearRevenue: %v", err)
	}
	if err := s.UpdateYearRevenue(context.Background(), "fresh", decimal.Zero, fresh); err != nil {
		t.Fatalf("UpdateYearRevenue: %v", err)
	}

	users, err := s.StaleRevenueUsers(context.Background(), time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("StaleRevenueUsers: %v", err)
	}
	if len(users) != 1 || users[0] != "stale" {
		t.Fatalf("users = %v, want [stale]", users)
	}
}
