// Package ledger defines the ports to persistent state: the transaction
// store and the VAT settings store. Implementations live in
// internal/storage (SQLite) and internal/ledger/memory; everything above
// this boundary is backend-agnostic.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"microcompta/internal/core"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type (
	// Filter narrows a transaction listing. Zero values mean "no
	// constraint". Search matches description, client name and category
	// case-insensitively.
	Filter struct {
		Search     string
		Categories []string
		Type       core.TransactionType
		From       core.Date
		To         core.Date
		Page       int
		PageSize   int
	}

	// Patch is a partial transaction update; nil fields are left
	// untouched.
	Patch struct {
		Amount      *decimal.Decimal
		AmountHT    *decimal.Decimal
		VatAmount   *decimal.Decimal
		VatRate     *decimal.Decimal
		Type        *core.TransactionType
		Category    *string
		Description *string
		Date        *core.Date
		ClientName  *string
		Status      *string
	}

	// TransactionStore is the sole boundary to persisted transactions.
	// Listing returns newest-date-first (created-at tiebreak) plus the
	// total count before pagination. Store errors surface unchanged;
	// there is no retry layer here.
	TransactionStore interface {
		List(ctx context.Context, userID string, f Filter) ([]core.Transaction, int, error)

		// ListRange returns every transaction dated within [from, to],
		// unpaginated, for aggregation.
		ListRange(ctx context.Context, userID string, from, to core.Date) ([]core.Transaction, error)
		Get(ctx context.Context, userID, id string) (core.Transaction, error)
		Create(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		Update(ctx context.Context, userID, id string, p Patch) (core.Transaction, error)
		Delete(ctx context.Context, userID, id string) error
		BulkDelete(ctx context.Context, userID string, ids []string) (int, error)

		// SumYearRevenue recomputes the income total for one calendar
		// year from source transactions. Only the recompute worker
		// should feed its result back into the settings cache.
		SumYearRevenue(ctx context.Context, userID string, year int) (decimal.Decimal, error)

		// RecentTransactions returns the newest transactions, bounded
		// by limit, in the List ordering.
		RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error)
	}

	// SettingsStore persists per-user VAT settings, including the
	// denormalized current_year_revenue aggregate.
	SettingsStore interface {
		GetSettings(ctx context.Context, userID string) (core.VatSettings, error)
		SaveSettings(ctx context.Context, s core.VatSettings) error
		UpdateYearRevenue(ctx context.Context, userID string, revenue decimal.Decimal, at time.Time) error

		// StaleRevenueUsers lists users whose cached aggregate was last
		// recomputed before the cutoff; the reconciliation sweep uses it
		// to bound staleness even when a queue message is lost.
		StaleRevenueUsers(ctx context.Context, cutoff time.Time) ([]string, error)
	}

	// Store is the combined backend created by the factory.
	Store interface {
		TransactionStore
		SettingsStore
		Close() error
	}
)

// Apply returns a copy of tx with the non-nil patch fields applied.
// Stores merge and validate through this before writing so that a patch
// can never produce an invalid row.
func (p Patch) Apply(tx core.Transaction) core.Transaction {
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.AmountHT != nil {
		tx.AmountHT = *p.AmountHT
	}
	if p.VatAmount != nil {
		tx.VatAmount = *p.VatAmount
	}
	if p.VatRate != nil {
		tx.VatRate = *p.VatRate
	}
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.Description != nil {
		tx.Description = *p.Description
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	if p.ClientName != nil {
		tx.ClientName = *p.ClientName
	}
	if p.Status != nil {
		tx.Status = *p.Status
	}
	return tx
}

// Normalize clamps pagination to sane bounds.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}
