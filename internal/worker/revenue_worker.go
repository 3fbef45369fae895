// Package worker maintains the denormalized per-user revenue aggregate.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"microcompta/internal/amqp"
	"microcompta/internal/ledger"
)

// RevenueMirror pushes recomputed aggregates to an external sheet. The
// mirror is optional and strictly best-effort; failures never block the
// aggregate update.
type RevenueMirror interface {
	MirrorRevenue(ctx context.Context, userID string, year int, revenue decimal.Decimal) error
}

// RevenueWorker recomputes the current-year revenue aggregate stored on
// each user's VAT profile. The API never writes this figure itself; it
// only enqueues recompute requests.
type RevenueWorker struct {
	store     ledger.Store
	mirror    RevenueMirror
	staleness time.Duration
	now       func() time.Time
}

func NewRevenueWorker(store ledger.Store, mirror RevenueMirror, staleness time.Duration) *RevenueWorker {
	return &RevenueWorker{
		store:     store,
		mirror:    mirror,
		staleness: staleness,
		now:       time.Now,
	}
}

// HandleRecomputeMessage processes a single recompute message from AMQP
func (w *RevenueWorker) HandleRecomputeMessage(ctx context.Context, msg *amqp.RevenueRecomputeMessage) error {
	slog.InfoContext(ctx, "Processing recompute message",
		"user_id", msg.UserID,
		"year", msg.Year)

	year := msg.Year
	if year == 0 {
		year = w.now().Year()
	}
	return w.Recompute(ctx, msg.UserID, year)
}

// Recompute refreshes the current-year aggregate from the transaction
// log and persists it on the user's VAT profile. The aggregate always
// tracks the current calendar year: a request for a prior year (a
// backfilled entry) still refreshes the current-year figure, and the
// requested year's total only goes to the mirror.
func (w *RevenueWorker) Recompute(ctx context.Context, userID string, year int) error {
	current := w.now().Year()

	revenue, err := w.store.SumYearRevenue(ctx, userID, current)
	if err != nil {
		return fmt.Errorf("sum year revenue: %w", err)
	}

	if err := w.store.UpdateYearRevenue(ctx, userID, revenue, w.now().UTC()); err != nil {
		return fmt.Errorf("update year revenue: %w", err)
	}

	slog.InfoContext(ctx, "Recomputed year revenue",
		"user_id", userID,
		"year", current,
		"revenue", revenue.StringFixed(2))

	w.checkThreshold(ctx, userID, revenue)

	if w.mirror != nil {
		mirrored := revenue
		if year != current {
			mirrored, err = w.store.SumYearRevenue(ctx, userID, year)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to sum revenue for mirror",
					"user_id", userID,
					"year", year,
					"error", err)
				return nil
			}
		}
		if err := w.mirror.MirrorRevenue(ctx, userID, year, mirrored); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror revenue",
				"user_id", userID,
				"year", year,
				"error", err)
		}
	}

	return nil
}

// checkThreshold logs a warning when a franchise user has crossed the
// annual revenue ceiling and asked to be alerted.
func (w *RevenueWorker) checkThreshold(ctx context.Context, userID string, revenue decimal.Decimal) {
	settings, err := w.store.GetSettings(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "Could not load settings for threshold check",
			"user_id", userID,
			"error", err)
		return
	}
	if !settings.AlertsEnabled || settings.Regime.Real() {
		return
	}
	if revenue.GreaterThan(settings.AnnualRevenueThreshold) {
		slog.WarnContext(ctx, "Franchise revenue threshold exceeded",
			"user_id", userID,
			"revenue", revenue.StringFixed(2),
			"threshold", settings.AnnualRevenueThreshold.StringFixed(2))
	}
}

// ReconcileStale recomputes aggregates that have not been refreshed
// recently. This is a backup mechanism in case AMQP messages are lost.
func (w *RevenueWorker) ReconcileStale(ctx context.Context) error {
	cutoff := w.now().Add(-w.staleness)
	users, err := w.store.StaleRevenueUsers(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale revenue users: %w", err)
	}

	if len(users) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Reconciling stale revenue aggregates", "count", len(users))

	year := w.now().Year()
	successCount := 0
	errorCount := 0

	for _, userID := range users {
		if err := w.Recompute(ctx, userID, year); err != nil {
			slog.ErrorContext(ctx, "Failed to reconcile revenue",
				"user_id", userID,
				"error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Reconciliation completed",
		"total", len(users),
		"reconciled", successCount,
		"errors", errorCount)

	return nil
}

// RunReconcileLoop runs the reconciliation sweep on a fixed interval
// until the context is cancelled.
func (w *RevenueWorker) RunReconcileLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Reconcile loop stopped")
			return
		case <-ticker.C:
			if err := w.ReconcileStale(ctx); err != nil {
				slog.ErrorContext(ctx, "Reconciliation sweep failed", "error", err)
			}
		}
	}
}
