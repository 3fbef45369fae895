// Package metrics folds a user's transaction list into the dashboard
// snapshot: KPI totals, growth rates, a fixed-length monthly series, the
// category breakdown and threshold alerts. Computation is pure: the
// reference time is always supplied by the caller, never read from the
// wall clock, so every function is deterministic under test.
package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"microcompta/internal/core"
	"microcompta/internal/vat"
)

// SeriesMonths is the fixed length of the trailing monthly series.
const SeriesMonths = 12

// RecentLimit bounds the recent-transactions list in the snapshot.
const RecentLimit = 10

var (
	hundred    = decimal.NewFromInt(100)
	one        = decimal.NewFromInt(1)
	thirtyDays = decimal.NewFromInt(30)
)

type monthTotals struct {
	revenue      decimal.Decimal
	expenses     decimal.Decimal
	vatCollected decimal.Decimal
}

// Build computes the full dashboard snapshot from a transaction list and
// the user's VAT settings. Transactions are expected newest-first (the
// store's ordering contract); order only affects the recent list.
func Build(txs []core.Transaction, settings core.VatSettings, now time.Time) core.DashboardData {
	byMonth := make(map[int]monthTotals) // key: year*100 + month
	var yearRevenue decimal.Decimal

	for _, tx := range txs {
		key := tx.Date.Year()*100 + tx.Date.Month()
		mt := byMonth[key]
		switch tx.Type {
		case core.Income:
			mt.revenue = mt.revenue.Add(tx.Amount.Abs())
			mt.vatCollected = mt.vatCollected.Add(tx.VatAmount.Abs())
			if tx.Date.Year() == now.Year() {
				yearRevenue = yearRevenue.Add(tx.Amount.Abs())
			}
		case core.Expense:
			mt.expenses = mt.expenses.Add(tx.Amount.Abs())
		}
		byMonth[key] = mt
	}

	curKey := now.Year()*100 + int(now.Month())
	prevDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	prevKey := prevDate.Year()*100 + int(prevDate.Month())

	cur := byMonth[curKey]
	prev := byMonth[prevKey]

	kpis := core.KPISet{
		TotalRevenue:  cur.revenue,
		TotalExpenses: cur.expenses,
		NetProfit:     cur.revenue.Sub(cur.expenses),
		RevenueGrowth: growth(cur.revenue, prev.revenue),
		ExpenseGrowth: growth(cur.expenses, prev.expenses),
		VatCollected:  cur.vatCollected,
		CashFlowDays:  cashFlowDays(cur.revenue, cur.expenses),
	}

	percent := decimal.Zero
	if settings.AnnualRevenueThreshold.IsPositive() {
		percent = yearRevenue.Div(settings.AnnualRevenueThreshold).Mul(hundred).Round(1)
	}
	status := core.VatStatus{
		Applicable:       vat.Applicable(settings, yearRevenue),
		Regime:           settings.Regime,
		YearRevenue:      yearRevenue,
		Threshold:        settings.AnnualRevenueThreshold,
		ThresholdPercent: percent,
	}

	alerts := vat.ThresholdAlerts(settings, yearRevenue)
	alerts = append(alerts, dashboardAlerts(kpis, settings, yearRevenue)...)

	recent := txs
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}

	return core.DashboardData{
		GeneratedAt:   now,
		KPIs:          kpis,
		Vat:           status,
		Alerts:        alerts,
		Recent:        append([]core.Transaction(nil), recent...),
		MonthlySeries: series(byMonth, now),
		Categories:    categoryBreakdown(txs, now),
	}
}

// Empty returns the all-zero snapshot used when the store is unavailable.
// The monthly series is still zero-filled to its fixed length so charts
// render an empty state instead of breaking.
func Empty(now time.Time) core.DashboardData {
	return core.DashboardData{
		GeneratedAt:   now,
		MonthlySeries: series(nil, now),
	}
}

// growth is the month-over-month percentage delta, nil when the baseline
// month had no activity: a missing baseline is not the same as no change.
func growth(current, previous decimal.Decimal) *decimal.Decimal {
	if !previous.IsPositive() {
		return nil
	}
	g := current.Sub(previous).Div(previous).Mul(hundred).Round(1)
	return &g
}

// cashFlowDays estimates runway assuming the month's expenses repeat:
// floor(max(0, revenue-expenses) / max(1, expenses) * 30). The floored
// denominator keeps the zero-expense case defined (and enormous) rather
// than infinite.
func cashFlowDays(revenue, expenses decimal.Decimal) int64 {
	net := revenue.Sub(expenses)
	if net.IsNegative() {
		net = decimal.Zero
	}
	denom := expenses
	if denom.LessThan(one) {
		denom = one
	}
	return net.Div(denom).Mul(thirtyDays).Floor().IntPart()
}

// series produces exactly SeriesMonths trailing entries ending at the
// current month, zero-filling months without transactions.
func series(byMonth map[int]monthTotals, now time.Time) []core.MonthlyPoint {
	points := make([]core.MonthlyPoint, 0, SeriesMonths)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(SeriesMonths - 1), 0)
	for i := 0; i < SeriesMonths; i++ {
		m := first.AddDate(0, i, 0)
		mt := byMonth[m.Year()*100+int(m.Month())]
		points = append(points, core.MonthlyPoint{
			Year:         m.Year(),
			Month:        int(m.Month()),
			Revenue:      mt.revenue,
			Expenses:     mt.expenses,
			VatCollected: mt.vatCollected,
			NetCashFlow:  mt.revenue.Sub(mt.expenses),
		})
	}
	return points
}

// categoryBreakdown groups the current month's transactions by category
// after normalization (trim + case-fold; the first label seen wins), sums
// absolute amounts and expresses each as a percentage of the total,
// sorted descending by amount.
func categoryBreakdown(txs []core.Transaction, now time.Time) []core.CategoryShare {
	type bucket struct {
		label  string
		amount decimal.Decimal
	}
	buckets := make(map[string]*bucket)
	var total decimal.Decimal

	for _, tx := range txs {
		if tx.Date.Year() != now.Year() || tx.Date.Month() != int(now.Month()) {
			continue
		}
		label := strings.TrimSpace(tx.Category)
		key := strings.ToLower(label)
		if key == "" {
			continue
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{label: label}
			buckets[key] = b
		}
		b.amount = b.amount.Add(tx.Amount.Abs())
		total = total.Add(tx.Amount.Abs())
	}

	shares := make([]core.CategoryShare, 0, len(buckets))
	for _, b := range buckets {
		percent := decimal.Zero
		if total.IsPositive() {
			percent = b.amount.Div(total).Mul(hundred).Round(2)
		}
		shares = append(shares, core.CategoryShare{
			Category: b.label,
			Amount:   b.amount,
			Percent:  percent,
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if !shares[i].Amount.Equal(shares[j].Amount) {
			return shares[i].Amount.GreaterThan(shares[j].Amount)
		}
		return shares[i].Category < shares[j].Category
	})

	// Independently rounded percentages can drift off 100; the largest
	// bucket absorbs the remainder.
	if total.IsPositive() && len(shares) > 0 {
		sum := decimal.Zero
		for _, share := range shares {
			sum = sum.Add(share.Percent)
		}
		shares[0].Percent = shares[0].Percent.Add(hundred.Sub(sum))
	}
	return shares
}
