package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SeverityInfo     AlertSeverity = "info"
	SeveritySuccess  AlertSeverity = "success"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

type (
	AlertSeverity string

	// Alert is a recomputed-on-every-fetch advisory; there is no alert
	// lifecycle or deduplication across fetches, an alert simply stops
	// appearing once its condition no longer holds.
	Alert struct {
		Severity         AlertSeverity   `json:"severity"`
		Code             string          `json:"code"`
		Title            string          `json:"title"`
		Message          string          `json:"message"`
		ThresholdPercent decimal.Decimal `json:"threshold_percent"`
		ActionRequired   bool            `json:"action_required"`
	}

	// KPISet holds the current-month headline figures. Growth fields are
	// nil when the previous month had no activity: "no baseline" is
	// reported as null, not as zero change.
	KPISet struct {
		TotalRevenue  decimal.Decimal  `json:"total_revenue"`
		TotalExpenses decimal.Decimal  `json:"total_expenses"`
		NetProfit     decimal.Decimal  `json:"net_profit"`
		RevenueGrowth *decimal.Decimal `json:"revenue_growth"`
		ExpenseGrowth *decimal.Decimal `json:"expense_growth"`
		VatCollected  decimal.Decimal  `json:"vat_collected"`
		CashFlowDays  int64            `json:"cash_flow_days"`
	}

	// VatStatus summarizes threshold proximity for the dashboard.
	VatStatus struct {
		Applicable       bool            `json:"applicable"`
		Regime           VatRegime       `json:"regime"`
		YearRevenue      decimal.Decimal `json:"year_revenue"`
		Threshold        decimal.Decimal `json:"threshold"`
		ThresholdPercent decimal.Decimal `json:"threshold_percent"`
	}

	// MonthlyPoint is one entry of the fixed-length trailing series.
	MonthlyPoint struct {
		Year         int             `json:"year"`
		Month        int             `json:"month"`
		Revenue      decimal.Decimal `json:"revenue"`
		Expenses     decimal.Decimal `json:"expenses"`
		VatCollected decimal.Decimal `json:"vat_collected"`
		NetCashFlow  decimal.Decimal `json:"net_cash_flow"`
	}

	// CategoryShare is one row of the current-month category breakdown.
	CategoryShare struct {
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		Percent  decimal.Decimal `json:"percent"`
	}

	// DashboardData is the derived snapshot bundle. It is recomputed from
	// transactions and settings on every fetch and never persisted.
	DashboardData struct {
		GeneratedAt   time.Time       `json:"generated_at"`
		KPIs          KPISet          `json:"kpis"`
		Vat           VatStatus       `json:"vat"`
		Alerts        []Alert         `json:"alerts"`
		Recent        []Transaction   `json:"recent_transactions"`
		MonthlySeries []MonthlyPoint  `json:"monthly_series"`
		Categories    []CategoryShare `json:"category_breakdown"`
	}
)
