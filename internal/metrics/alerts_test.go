package metrics

import (
	"testing"

	"microcompta/internal/core"
)

func codes(alerts []core.Alert) map[string]bool {
	m := make(map[string]bool, len(alerts))
	for _, a := range alerts {
		m[a.Code] = true
	}
	return m
}

func TestDashboardAlertsLowRunway(t *testing.T) {
	kpis := core.KPISet{CashFlowDays: 12}
	got := codes(dashboardAlerts(kpis, core.DefaultVatSettings("u1"), dec("0")))
	if !got["low_cash_flow"] {
		t.Fatalf("expected low_cash_flow alert, got %v", got)
	}
}

func TestDashboardAlertsGrowth(t *testing.T) {
	g := dec("25")
	kpis := core.KPISet{RevenueGrowth: &g, CashFlowDays: 100}
	got := codes(dashboardAlerts(kpis, core.DefaultVatSettings("u1"), dec("0")))
	if !got["strong_revenue_growth"] {
		t.Fatalf("expected strong_revenue_growth alert, got %v", got)
	}
	if got["low_cash_flow"] {
		t.Fatalf("low_cash_flow should not fire at 100 days")
	}
}

func TestDashboardAlertsNearThreshold(t *testing.T) {
	kpis := core.KPISet{CashFlowDays: 100}
	got := codes(dashboardAlerts(kpis, core.DefaultVatSettings("u1"), dec("33500")))
	if !got["revenue_near_threshold"] {
		t.Fatalf("expected revenue_near_threshold alert, got %v", got)
	}
}

func TestDashboardAlertsIndependentRulesCoFire(t *testing.T) {
	g := dec("40")
	kpis := core.KPISet{RevenueGrowth: &g, CashFlowDays: 5}
	alerts := dashboardAlerts(kpis, core.DefaultVatSettings("u1"), dec("36000"))
	if len(alerts) != 3 {
		t.Fatalf("expected all three rules to fire, got %d: %v", len(alerts), codes(alerts))
	}
}
