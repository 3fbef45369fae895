package vat

import (
	"fmt"

	"github.com/shopspring/decimal"

	"microcompta/internal/core"
)

// Threshold tiers, in percent of the annual revenue threshold.
var (
	tierApproaching = decimal.NewFromInt(80)
	tierPrepare     = decimal.NewFromInt(90)
)

// ThresholdAlerts returns the franchise threshold advisories for the given
// revenue. Only franchise users with alerts enabled receive any; réel
// regimes already collect VAT and have nothing to be warned about.
//
// One alert per fetch: the highest tier that applies. Critical fires only
// when revenue strictly exceeds the threshold — exactly at the threshold
// the exemption still holds and the 90% tier is reported instead.
func ThresholdAlerts(s core.VatSettings, yearRevenue decimal.Decimal) []core.Alert {
	if s.Regime != core.RegimeFranchise || !s.AlertsEnabled {
		return nil
	}
	if !s.AnnualRevenueThreshold.IsPositive() {
		return nil
	}

	percent := yearRevenue.Div(s.AnnualRevenueThreshold).Mul(hundred).Round(1)

	switch {
	case yearRevenue.GreaterThan(s.AnnualRevenueThreshold):
		msg := fmt.Sprintf(
			"Votre chiffre d'affaires (%s €) dépasse le seuil de %s €. La TVA est désormais applicable : facturez en TTC et déposez une déclaration de TVA.",
			yearRevenue.StringFixed(2), s.AnnualRevenueThreshold.StringFixed(2))
		return []core.Alert{{
			Severity:         core.SeverityCritical,
			Code:             "vat_threshold_exceeded",
			Title:            "Seuil de franchise dépassé",
			Message:          msg,
			ThresholdPercent: percent,
			ActionRequired:   true,
		}}
	case percent.GreaterThanOrEqual(tierPrepare):
		msg := fmt.Sprintf(
			"Vous avez atteint %s%% du seuil de franchise. Anticipez le changement de régime : numéro de TVA intracommunautaire, mentions de facturation, acomptes.",
			percent.StringFixed(1))
		return []core.Alert{{
			Severity:         core.SeverityWarning,
			Code:             "vat_threshold_prepare",
			Title:            "Préparez le passage à la TVA",
			Message:          msg,
			ThresholdPercent: percent,
			ActionRequired:   false,
		}}
	case percent.GreaterThanOrEqual(tierApproaching):
		msg := fmt.Sprintf(
			"Vous avez atteint %s%% du seuil de franchise en base (%s €). Surveillez votre chiffre d'affaires.",
			percent.StringFixed(1), s.AnnualRevenueThreshold.StringFixed(2))
		return []core.Alert{{
			Severity:         core.SeverityWarning,
			Code:             "vat_threshold_approaching",
			Title:            "Seuil de franchise en approche",
			Message:          msg,
			ThresholdPercent: percent,
			ActionRequired:   false,
		}}
	default:
		return nil
	}
}
