package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"microcompta/internal/core"
	"microcompta/internal/ledger"
	"microcompta/internal/ledger/memory"
)

type fakePublisher struct {
	calls []string
	err   error
}

func (p *fakePublisher) PublishRevenueRecompute(_ context.Context, userID string, year int) error {
	p.calls = append(p.calls, userID)
	return p.err
}

type fakeInvalidator struct {
	users []string
}

func (i *fakeInvalidator) Invalidate(userID string) {
	i.users = append(i.users, userID)
}

func newTxService() (*TransactionService, *memory.Store, *fakePublisher, *fakeInvalidator) {
	store := memory.New()
	pub := &fakePublisher{}
	inv := &fakeInvalidator{}
	return NewTransactionService(store, pub, inv), store, pub, inv
}

func TestCreateDerivesVatWhenApplicable(t *testing.T) {
	svc, store, pub, inv := newTxService()

	settings := core.DefaultVatSettings("u1")
	settings.VoluntaryRegistration = true
	if err := store.SaveSettings(context.Background(), settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	created, err := svc.Create(context.Background(), core.Transaction{
		UserID:   "u1",
		Amount:   decimal.RequireFromString("1200"),
		VatRate:  decimal.NewFromInt(20),
		Type:     core.Income,
		Category: "conseil",
		Date:     core.NewDate(2025, 3, 10),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if want := decimal.RequireFromString("1000"); !created.AmountHT.Equal(want) {
		t.Fatalf("AmountHT = %s, want %s", created.AmountHT, want)
	}
	if want := decimal.RequireFromString("200"); !created.VatAmount.Equal(want) {
		t.Fatalf("VatAmount = %s, want %s", created.VatAmount, want)
	}
	if created.Status != "completed" {
		t.Fatalf("Status = %q, want completed", created.Status)
	}
	if len(pub.calls) != 1 || pub.calls[0] != "u1" {
		t.Fatalf("publish calls = %v", pub.calls)
	}
	if len(inv.users) != 1 || inv.users[0] != "u1" {
		t.Fatalf("invalidations = %v", inv.users)
	}
}

func TestCreateUnderFranchiseKeepsAmountGross(t *testing.T) {
	svc, _, _, _ := newTxService()

	created, err := svc.Create(context.Background(), core.Transaction{
		UserID:   "u1",
		Amount:   decimal.RequireFromString("1200"),
		Type:     core.Income,
		Category: "conseil",
		Date:     core.NewDate(2025, 3, 10),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created.AmountHT.Equal(created.Amount) {
		t.Fatalf("AmountHT = %s, want gross %s", created.AmountHT, created.Amount)
	}
	if !created.VatAmount.IsZero() {
		t.Fatalf("VatAmount = %s, want 0", created.VatAmount)
	}
}

func TestCreatePublishErrorIsNonFatal(t *testing.T) {
	store := memory.New()
	pub := &fakePublisher{err: context.DeadlineExceeded}
	svc := NewTransactionService(store, pub, nil)

	if _, err := svc.Create(context.Background(), core.Transaction{
		UserID:   "u1",
		Amount:   decimal.RequireFromString("50"),
		Type:     core.Expense,
		Category: "materiel",
		Date:     core.NewDate(2025, 3, 10),
	}); err != nil {
		t.Fatalf("Create should survive a publish failure: %v", err)
	}
}

func TestUpdateRederivesVatOnAmountChange(t *testing.T) {
	svc, store, _, _ := newTxService()

	settings := core.DefaultVatSettings("u1")
	settings.VoluntaryRegistration = true
	if err := store.SaveSettings(context.Background(), settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	created, err := svc.Create(context.Background(), core.Transaction{
		UserID:   "u1",
		Amount:   decimal.RequireFromString("1200"),
		VatRate:  decimal.NewFromInt(20),
		Type:     core.Income,
		Category: "conseil",
		Date:     core.NewDate(2025, 3, 10),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	amount := decimal.RequireFromString("600")
	updated, err := svc.Update(context.Background(), "u1", created.ID, ledger.Patch{Amount: &amount})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if want := decimal.RequireFromString("500"); !updated.AmountHT.Equal(want) {
		t.Fatalf("AmountHT = %s, want %s", updated.AmountHT, want)
	}
	if want := decimal.RequireFromString("100"); !updated.VatAmount.Equal(want) {
		t.Fatalf("VatAmount = %s, want %s", updated.VatAmount, want)
	}
}

func TestDeleteNotFoundSkipsSideEffects(t *testing.T) {
	svc, _, pub, inv := newTxService()

	if err := svc.Delete(context.Background(), "u1", "missing"); err != core.ErrNotFound {
		t.Fatalf("Delete error = %v, want ErrNotFound", err)
	}
	if len(pub.calls) != 0 || len(inv.users) != 0 {
		t.Fatalf("side effects ran for failed delete: %v %v", pub.calls, inv.users)
	}
}

func TestBulkDeleteOnlyNotifiesWhenRowsWereDeleted(t *testing.T) {
	svc, _, pub, _ := newTxService()

	if _, err := svc.BulkDelete(context.Background(), "u1", []string{"missing"}); err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	if len(pub.calls) != 0 {
		t.Fatalf("publish calls = %v, want none", pub.calls)
	}
}

func TestSettingsDefaultsForNewUser(t *testing.T) {
	svc, _, _, _ := newTxService()

	settings, err := svc.Settings(context.Background(), "nouveau")
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.Regime != core.RegimeFranchise || !settings.AlertsEnabled {
		t.Fatalf("unexpected defaults: %+v", settings)
	}
	if !settings.AnnualRevenueThreshold.Equal(core.ServicesRevenueThreshold) {
		t.Fatalf("threshold = %s", settings.AnnualRevenueThreshold)
	}
}

func TestSaveSettingsInvalidatesCache(t *testing.T) {
	svc, _, _, inv := newTxService()
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }

	if err := svc.SaveSettings(context.Background(), core.DefaultVatSettings("u1")); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if len(inv.users) != 1 || inv.users[0] != "u1" {
		t.Fatalf("invalidations = %v", inv.users)
	}
}
