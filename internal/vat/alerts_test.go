package vat

import (
	"testing"

	"microcompta/internal/core"
)

func TestThresholdAlertsTiers(t *testing.T) {
	cases := []struct {
		name     string
		revenue  string
		wantCode string // empty means no alert
	}{
		{"far below", "10000", ""},
		{"just under 80%", "29439.99", ""},
		{"at 80%", "29440", "vat_threshold_approaching"},
		{"at 90%", "33120", "vat_threshold_prepare"},
		{"at 99%", "36432", "vat_threshold_prepare"},
		{"exactly at threshold", "36800.00", "vat_threshold_prepare"}, // no critical at the boundary
		{"one cent over", "36800.01", "vat_threshold_exceeded"},
		{"far over", "50000", "vat_threshold_exceeded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alerts := ThresholdAlerts(franchiseSettings(), dec(tc.revenue))
			if tc.wantCode == "" {
				if len(alerts) != 0 {
					t.Fatalf("expected no alerts, got %v", alerts)
				}
				return
			}
			// Tiers are collapsed: exactly one alert per fetch
			if len(alerts) != 1 {
				t.Fatalf("expected exactly one alert, got %d", len(alerts))
			}
			if alerts[0].Code != tc.wantCode {
				t.Fatalf("code = %s, want %s", alerts[0].Code, tc.wantCode)
			}
		})
	}
}

func TestThresholdAlertsCritical(t *testing.T) {
	alerts := ThresholdAlerts(franchiseSettings(), dec("40000"))
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Severity != core.SeverityCritical {
		t.Fatalf("severity = %s", a.Severity)
	}
	if !a.ActionRequired {
		t.Fatalf("critical alert must require action")
	}
	if a.ThresholdPercent.LessThan(dec("100")) {
		t.Fatalf("threshold percent = %s", a.ThresholdPercent)
	}
}

func TestThresholdAlertsSuppressed(t *testing.T) {
	// Réel regimes never alert, regardless of revenue
	s := franchiseSettings()
	s.Regime = core.RegimeReelNormal
	if got := ThresholdAlerts(s, dec("1000000")); len(got) != 0 {
		t.Fatalf("reel_normal should not alert, got %v", got)
	}

	// Disabled alerts suppress everything
	s = franchiseSettings()
	s.AlertsEnabled = false
	if got := ThresholdAlerts(s, dec("1000000")); len(got) != 0 {
		t.Fatalf("disabled alerts should suppress, got %v", got)
	}
}
