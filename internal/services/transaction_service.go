// Package services orchestrates the ledger, the VAT engine and the
// recompute queue behind the HTTP handlers.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"microcompta/internal/core"
	"microcompta/internal/ledger"
	"microcompta/internal/vat"
)

// RecomputePublisher pushes revenue recompute requests to the worker.
type RecomputePublisher interface {
	PublishRevenueRecompute(ctx context.Context, userID string, year int) error
}

// Invalidator drops cached dashboard snapshots for one user.
type Invalidator interface {
	Invalidate(userID string)
}

// TransactionService owns transaction writes: validation, VAT derivation,
// persistence, then the async side effects. The write path never fails on
// a publish error; the periodic reconciliation sweep covers lost messages.
type TransactionService struct {
	store ledger.Store
	queue RecomputePublisher
	cache Invalidator
	now   func() time.Time
}

func NewTransactionService(store ledger.Store, queue RecomputePublisher, cache Invalidator) *TransactionService {
	return &TransactionService{
		store: store,
		queue: queue,
		cache: cache,
		now:   time.Now,
	}
}

// Create derives missing HT/VAT fields from the user's VAT situation,
// persists the transaction and schedules a revenue recompute.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	settings, err := s.settingsOrDefault(ctx, tx.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load vat settings: %w", err)
	}

	if tx.AmountHT.IsZero() && tx.VatAmount.IsZero() {
		b := vat.Calculate(tx.Amount, settings, settings.CurrentYearRevenue, tx.VatRate)
		tx.AmountHT = b.AmountHT
		tx.VatAmount = b.VatAmount
		tx.VatRate = b.VatRate
	}
	if tx.Status == "" {
		tx.Status = "completed"
	}

	created, err := s.store.Create(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.afterWrite(ctx, created.UserID, created.Date.Year())
	return created, nil
}

// Update re-derives HT/VAT when the amount or rate changes, then applies
// the patch in one store round trip.
func (s *TransactionService) Update(ctx context.Context, userID, id string, p ledger.Patch) (core.Transaction, error) {
	if p.Amount != nil || p.VatRate != nil {
		existing, err := s.store.Get(ctx, userID, id)
		if err != nil {
			return core.Transaction{}, err
		}
		settings, err := s.settingsOrDefault(ctx, userID)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("load vat settings: %w", err)
		}

		amount := existing.Amount
		if p.Amount != nil {
			amount = *p.Amount
		}
		rate := existing.VatRate
		if p.VatRate != nil {
			rate = *p.VatRate
		}
		b := vat.Calculate(amount, settings, settings.CurrentYearRevenue, rate)
		p.AmountHT = &b.AmountHT
		p.VatAmount = &b.VatAmount
		p.VatRate = &b.VatRate
	}

	updated, err := s.store.Update(ctx, userID, id, p)
	if err != nil {
		return core.Transaction{}, err
	}

	s.afterWrite(ctx, userID, updated.Date.Year())
	return updated, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.store.Get(ctx, userID, id)
}

func (s *TransactionService) List(ctx context.Context, userID string, f ledger.Filter) ([]core.Transaction, int, error) {
	return s.store.List(ctx, userID, f)
}

func (s *TransactionService) ListRange(ctx context.Context, userID string, from, to core.Date) ([]core.Transaction, error) {
	return s.store.ListRange(ctx, userID, from, to)
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	tx, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.afterWrite(ctx, userID, tx.Date.Year())
	return nil
}

func (s *TransactionService) BulkDelete(ctx context.Context, userID string, ids []string) (int, error) {
	deleted, err := s.store.BulkDelete(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.afterWrite(ctx, userID, s.now().Year())
	}
	return deleted, nil
}

// Settings returns the user's VAT profile, falling back to the franchise
// defaults for users who never saved one.
func (s *TransactionService) Settings(ctx context.Context, userID string) (core.VatSettings, error) {
	return s.settingsOrDefault(ctx, userID)
}

// SaveSettings persists the profile. The denormalized year revenue is
// owned by the worker, so a settings save never touches it.
func (s *TransactionService) SaveSettings(ctx context.Context, settings core.VatSettings) error {
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.afterWrite(ctx, settings.UserID, s.now().Year())
	return nil
}

func (s *TransactionService) settingsOrDefault(ctx context.Context, userID string) (core.VatSettings, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.DefaultVatSettings(userID), nil
	}
	if err != nil {
		return core.VatSettings{}, err
	}
	return settings, nil
}

// afterWrite runs the side effects of a successful mutation: drop the
// user's cached snapshots and ask the worker to recompute the aggregate.
// Both are non-fatal; the local write already succeeded.
func (s *TransactionService) afterWrite(ctx context.Context, userID string, year int) {
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
	if s.queue == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping recompute message", "user_id", userID)
		return
	}
	if err := s.queue.PublishRevenueRecompute(ctx, userID, year); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recompute message",
			"user_id", userID, "year", year, "error", err)
	}
}
