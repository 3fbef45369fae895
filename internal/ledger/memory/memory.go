// Package memory provides an in-memory ledger backend used in tests and
// for local development without a database file.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"microcompta/internal/core"
	"microcompta/internal/ledger"
)

type Store struct {
	mu       sync.Mutex
	items    map[string]core.Transaction
	settings map[string]core.VatSettings
	now      func() time.Time
}

func New() *Store {
	return &Store{
		items:    map[string]core.Transaction{},
		settings: map[string]core.VatSettings{},
		now:      time.Now,
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Create(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	s.items[tx.ID] = tx
	return tx, nil
}

func (s *Store) Get(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	if !ok || tx.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *Store) List(_ context.Context, userID string, f ledger.Filter) ([]core.Transaction, int, error) {
	f = f.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.items {
		if tx.UserID != userID || !matches(tx, f) {
			continue
		}
		out = append(out, tx)
	}
	sortNewestFirst(out)
	total := len(out)
	start := (f.Page - 1) * f.PageSize
	if start >= total {
		return []core.Transaction{}, total, nil
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (s *Store) ListRange(_ context.Context, userID string, from, to core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.items {
		if tx.UserID != userID {
			continue
		}
		if !from.IsZero() && tx.Date.Before(from.Time) {
			continue
		}
		if !to.IsZero() && tx.Date.After(to.Time) {
			continue
		}
		out = append(out, tx)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) Update(_ context.Context, userID, id string, p ledger.Patch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	if !ok || tx.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	tx = p.Apply(tx)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.items[id] = tx
	return tx, nil
}

func (s *Store) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	if !ok || tx.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) BulkDelete(_ context.Context, userID string, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for _, id := range ids {
		tx, ok := s.items[id]
		if !ok || tx.UserID != userID {
			continue
		}
		delete(s.items, id)
		deleted++
	}
	return deleted, nil
}

func (s *Store) SumYearRevenue(_ context.Context, userID string, year int) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, tx := range s.items {
		if tx.UserID != userID || tx.Type != core.Income || tx.Date.Year() != year {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total, nil
}

func (s *Store) RecentTransactions(_ context.Context, userID string, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.items {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetSettings(_ context.Context, userID string) (core.VatSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[userID]
	if !ok {
		return core.VatSettings{}, core.ErrNotFound
	}
	return v, nil
}

func (s *Store) SaveSettings(_ context.Context, v core.VatSettings) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[v.UserID] = v
	return nil
}

func (s *Store) UpdateYearRevenue(_ context.Context, userID string, revenue decimal.Decimal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[userID]
	if !ok {
		v = core.DefaultVatSettings(userID)
	}
	v.CurrentYearRevenue = revenue
	v.RevenueUpdatedAt = at
	s.settings[userID] = v
	return nil
}

func (s *Store) StaleRevenueUsers(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, v := range s.settings {
		if v.RevenueUpdatedAt.Before(cutoff) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func matches(tx core.Transaction, f ledger.Filter) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if len(f.Categories) > 0 && !containsFold(f.Categories, tx.Category) {
		return false
	}
	if !f.From.IsZero() && tx.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To.Time) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(tx.Description), q) &&
			!strings.Contains(strings.ToLower(tx.ClientName), q) &&
			!strings.Contains(strings.ToLower(tx.Category), q) {
			return false
		}
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(needle)) {
			return true
		}
	}
	return false
}

func sortNewestFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.After(txs[j].Date.Time)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}
