// Package storage implements the ledger ports on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"microcompta/internal/core"
	"microcompta/internal/ledger"

	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = time.RFC3339Nano
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const txColumns = `id, user_id, amount_cents, amount_ht_cents, vat_amount_cents, vat_rate,
	type, category, description, date, client_name, status, created_at`

func (r *SQLiteRepository) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID,
		core.Cents(tx.Amount), core.Cents(tx.AmountHT), core.Cents(tx.VatAmount),
		tx.VatRate.String(),
		string(tx.Type), tx.Category, tx.Description,
		tx.Date.Format(dateLayout), tx.ClientName, tx.Status,
		tx.CreatedAt.Format(tsLayout),
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"type", tx.Type,
		"amount_cents", core.Cents(tx.Amount),
		"category", tx.Category)

	return tx, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+txColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string, f ledger.Filter) ([]core.Transaction, int, error) {
	f = f.Normalize()
	where, args := buildFilter(userID, f)

	var total int
	countArgs := append([]any(nil), args...)
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions `+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+` FROM transactions `+where+`
		ORDER BY date DESC, created_at DESC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	items := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		items = append(items, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transactions: %w", err)
	}
	return items, total, nil
}

func (r *SQLiteRepository) ListRange(ctx context.Context, userID string, from, to core.Date) ([]core.Transaction, error) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}
	if !from.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, from.Format(dateLayout))
	}
	if !to.IsZero() {
		clauses = append(clauses, "date <= ?")
		args = append(args, to.Format(dateLayout))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE `+strings.Join(clauses, " AND ")+`
		ORDER BY date DESC, created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list range: %w", err)
	}
	defer rows.Close()

	items := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		items = append(items, tx)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) Update(ctx context.Context, userID, id string, p ledger.Patch) (core.Transaction, error) {
	existing, err := r.Get(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := p.Apply(existing).Validate(); err != nil {
		return core.Transaction{}, err
	}

	sets, args := buildPatch(p)
	if len(sets) == 0 {
		return existing, nil
	}

	args = append(args, id, userID)
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET `+strings.Join(sets, ", ")+`
		WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction rows: %w", err)
	}
	if affected == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return r.Get(ctx, userID, id)
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) BulkDelete(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, userID)

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id IN (`+placeholders+`) AND user_id = ?`, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk delete transactions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk delete rows: %w", err)
	}
	return int(affected), nil
}

func (r *SQLiteRepository) SumYearRevenue(ctx context.Context, userID string, year int) (decimal.Decimal, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND type = 'income' AND substr(date, 1, 4) = ?`,
		userID, fmt.Sprintf("%04d", year)).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum year revenue: %w", err)
	}
	return core.FromCents(cents), nil
}

func (r *SQLiteRepository) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+` FROM transactions WHERE user_id = ?
		ORDER BY date DESC, created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()

	items := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		items = append(items, tx)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) GetSettings(ctx context.Context, userID string) (core.VatSettings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, vat_regime, regime_start_date, voluntary_registration,
			annual_revenue_threshold_cents, current_year_revenue_cents,
			alerts_enabled, legal_status, revenue_updated_at
		FROM vat_profiles WHERE user_id = ?`, userID)

	var (
		s          core.VatSettings
		startDate  string
		voluntary  int
		thresholdC int64
		revenueC   int64
		alerts     int
		updatedAt  sql.NullString
	)
	err := row.Scan(&s.UserID, &s.Regime, &startDate, &voluntary,
		&thresholdC, &revenueC, &alerts, &s.LegalStatus, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.VatSettings{}, core.ErrNotFound
	}
	if err != nil {
		return core.VatSettings{}, fmt.Errorf("get vat profile: %w", err)
	}

	if startDate != "" {
		if t, err := time.ParseInLocation(dateLayout, startDate, time.UTC); err == nil {
			s.RegimeStartDate = core.DateOf(t)
		}
	}
	s.VoluntaryRegistration = voluntary != 0
	s.AnnualRevenueThreshold = core.FromCents(thresholdC)
	s.CurrentYearRevenue = core.FromCents(revenueC)
	s.AlertsEnabled = alerts != 0
	if updatedAt.Valid {
		s.RevenueUpdatedAt = parseTimestamp(updatedAt.String)
	}
	return s, nil
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.VatSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	startDate := ""
	if !s.RegimeStartDate.IsZero() {
		startDate = s.RegimeStartDate.Format(dateLayout)
	}
	var updatedAt any
	if !s.RevenueUpdatedAt.IsZero() {
		updatedAt = s.RevenueUpdatedAt.Format(tsLayout)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vat_profiles (user_id, vat_regime, regime_start_date,
			voluntary_registration, annual_revenue_threshold_cents,
			current_year_revenue_cents, alerts_enabled, legal_status, revenue_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			vat_regime = excluded.vat_regime,
			regime_start_date = excluded.regime_start_date,
			voluntary_registration = excluded.voluntary_registration,
			annual_revenue_threshold_cents = excluded.annual_revenue_threshold_cents,
			alerts_enabled = excluded.alerts_enabled,
			legal_status = excluded.legal_status`,
		s.UserID, string(s.Regime), startDate,
		boolInt(s.VoluntaryRegistration), core.Cents(s.AnnualRevenueThreshold),
		core.Cents(s.CurrentYearRevenue), boolInt(s.AlertsEnabled),
		string(s.LegalStatus), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("save vat profile: %w", err)
	}
	return nil
}

// UpdateYearRevenue upserts the denormalized aggregate; the upsert keeps
// a profile row present even for users who never touched their settings.
func (r *SQLiteRepository) UpdateYearRevenue(ctx context.Context, userID string, revenue decimal.Decimal, at time.Time) error {
	defaults := core.DefaultVatSettings(userID)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vat_profiles (user_id, vat_regime, annual_revenue_threshold_cents,
			current_year_revenue_cents, alerts_enabled, legal_status, revenue_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			current_year_revenue_cents = excluded.current_year_revenue_cents,
			revenue_updated_at = excluded.revenue_updated_at`,
		userID, string(defaults.Regime), core.Cents(defaults.AnnualRevenueThreshold),
		core.Cents(revenue), boolInt(defaults.AlertsEnabled),
		string(defaults.LegalStatus), at.Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("update year revenue: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) StaleRevenueUsers(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM vat_profiles
		WHERE revenue_updated_at IS NULL OR revenue_updated_at < ?
		ORDER BY user_id`, cutoff.Format(tsLayout))
	if err != nil {
		return nil, fmt.Errorf("stale revenue users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx        core.Transaction
		amountC   int64
		htC       int64
		vatC      int64
		rate      string
		txType    string
		date      string
		createdAt string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &amountC, &htC, &vatC, &rate,
		&txType, &tx.Category, &tx.Description, &date, &tx.ClientName,
		&tx.Status, &createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Amount = core.FromCents(amountC)
	tx.AmountHT = core.FromCents(htC)
	tx.VatAmount = core.FromCents(vatC)
	tx.VatRate, err = decimal.NewFromString(rate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse vat rate %q: %w", rate, err)
	}
	tx.Type = core.TransactionType(txType)
	t, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	tx.Date = core.DateOf(t)
	tx.CreatedAt = parseTimestamp(createdAt)
	return tx, nil
}

func buildFilter(userID string, f ledger.Filter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}

	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(f.Type))
	}
	if len(f.Categories) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?, ", len(f.Categories)), ", ")
		clauses = append(clauses, "lower(trim(category)) IN ("+ph+")")
		for _, c := range f.Categories {
			args = append(args, strings.ToLower(strings.TrimSpace(c)))
		}
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.To.Format(dateLayout))
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		clauses = append(clauses, "(lower(description) LIKE ? OR lower(client_name) LIKE ? OR lower(category) LIKE ?)")
		args = append(args, like, like, like)
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func buildPatch(p ledger.Patch) ([]string, []any) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Amount != nil {
		set("amount_cents", core.Cents(*p.Amount))
	}
	if p.AmountHT != nil {
		set("amount_ht_cents", core.Cents(*p.AmountHT))
	}
	if p.VatAmount != nil {
		set("vat_amount_cents", core.Cents(*p.VatAmount))
	}
	if p.VatRate != nil {
		set("vat_rate", p.VatRate.String())
	}
	if p.Type != nil {
		set("type", string(*p.Type))
	}
	if p.Category != nil {
		set("category", *p.Category)
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Date != nil {
		set("date", p.Date.Format(dateLayout))
	}
	if p.ClientName != nil {
		set("client_name", *p.ClientName)
	}
	if p.Status != nil {
		set("status", *p.Status)
	}
	return sets, args
}

// parseTimestamp tolerates both our RFC3339 writes and SQLite's
// CURRENT_TIMESTAMP default format.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{tsLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
