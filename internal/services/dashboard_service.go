package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"microcompta/internal/cache"
	"microcompta/internal/core"
	"microcompta/internal/ledger"
	"microcompta/internal/metrics"
)

// snapshotKey buckets cache entries per user and wall-clock hour, so an
// entry can never straddle an hour boundary even within its TTL.
func snapshotKey(userID string, now time.Time) string {
	return userID + ":" + now.UTC().Format("2006010215")
}

// DashboardService assembles dashboard snapshots. Reads are cached and
// deduplicated; a store failure degrades to an empty snapshot instead of
// surfacing an error to the UI.
type DashboardService struct {
	store ledger.Store
	cache *cache.LRUCache[core.DashboardData]
	group singleflight.Group
	now   func() time.Time
}

func NewDashboardService(store ledger.Store, snapshots *cache.LRUCache[core.DashboardData]) *DashboardService {
	return &DashboardService{
		store: store,
		cache: snapshots,
		now:   time.Now,
	}
}

// Snapshot returns the dashboard for one user. force skips the cache but
// still shares in-flight builds.
func (s *DashboardService) Snapshot(ctx context.Context, userID string, force bool) core.DashboardData {
	now := s.now()
	key := snapshotKey(userID, now)

	if !force && s.cache != nil {
		if data, ok := s.cache.Get(key); ok {
			return data
		}
	}

	data, _, _ := s.group.Do(key, func() (any, error) {
		built, err := s.build(ctx, userID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to build dashboard snapshot",
				"user_id", userID, "error", err)
			return metrics.Empty(now), nil
		}
		if s.cache != nil {
			s.cache.Set(key, built)
		}
		return built, nil
	})
	return data.(core.DashboardData)
}

// Invalidate drops every cached snapshot of one user. Implements the
// Invalidator side effect of the write path.
func (s *DashboardService) Invalidate(userID string) {
	if s.cache != nil {
		s.cache.DeletePrefix(userID + ":")
	}
}

func (s *DashboardService) build(ctx context.Context, userID string, now time.Time) (core.DashboardData, error) {
	// The aggregation window: previous calendar year through today covers
	// the trailing 12-month series and the year-over-month comparisons.
	from := core.NewDate(now.Year()-1, 1, 1)
	to := core.DateOf(now)

	var (
		txs      []core.Transaction
		settings core.VatSettings
		recent   []core.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListRange(gctx, userID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = s.store.GetSettings(gctx, userID)
		if errors.Is(err, core.ErrNotFound) {
			settings = core.DefaultVatSettings(userID)
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.store.RecentTransactions(gctx, userID, metrics.RecentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DashboardData{}, err
	}

	data := metrics.Build(txs, settings, now)
	data.Recent = recent
	return data, nil
}
