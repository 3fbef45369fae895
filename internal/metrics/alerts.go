package metrics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"microcompta/internal/core"
)

// Dashboard alert thresholds. Rules are independent and may co-fire.
var (
	revenueWarnPercent = decimal.NewFromInt(90)
	growthSuccess      = decimal.NewFromInt(20)
	lowRunwayDays      = int64(30)
)

// dashboardAlerts applies the dashboard-level rules, distinct from the VAT
// threshold tiers: a 90%-of-threshold revenue warning, a low-runway
// critical, and a strong-growth success note.
func dashboardAlerts(kpis core.KPISet, settings core.VatSettings, yearRevenue decimal.Decimal) []core.Alert {
	var alerts []core.Alert

	if settings.Regime == core.RegimeFranchise && settings.AnnualRevenueThreshold.IsPositive() {
		percent := yearRevenue.Div(settings.AnnualRevenueThreshold).Mul(hundred).Round(1)
		if percent.GreaterThanOrEqual(revenueWarnPercent) {
			msg := fmt.Sprintf("Votre chiffre d'affaires annuel atteint %s%% du seuil de TVA.", percent.StringFixed(1))
			alerts = append(alerts, core.Alert{
				Severity:         core.SeverityWarning,
				Code:             "revenue_near_threshold",
				Title:            "Chiffre d'affaires proche du seuil",
				Message:          msg,
				ThresholdPercent: percent,
			})
		}
	}

	if kpis.CashFlowDays < lowRunwayDays {
		msg := fmt.Sprintf("Votre trésorerie couvre environ %d jours de charges au rythme actuel.", kpis.CashFlowDays)
		alerts = append(alerts, core.Alert{
			Severity: core.SeverityCritical,
			Code:     "low_cash_flow",
			Title:    "Trésorerie tendue",
			Message:  msg,
		})
	}

	if kpis.RevenueGrowth != nil && kpis.RevenueGrowth.GreaterThanOrEqual(growthSuccess) {
		msg := fmt.Sprintf("Votre chiffre d'affaires progresse de %s%% par rapport au mois dernier.", kpis.RevenueGrowth.StringFixed(1))
		alerts = append(alerts, core.Alert{
			Severity: core.SeveritySuccess,
			Code:     "strong_revenue_growth",
			Title:    "Forte croissance",
			Message:  msg,
		})
	}

	return alerts
}
