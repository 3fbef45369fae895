// Package vat implements the French micro-entrepreneur VAT rules: franchise
// en base applicability, HT/TTC decomposition, threshold alerts and
// regime-change simulation. All functions are pure; the package never
// touches a store or the clock.
package vat

import (
	"github.com/shopspring/decimal"

	"microcompta/internal/core"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Breakdown is the HT/TTC decomposition of a single amount.
type Breakdown struct {
	AmountHT    decimal.Decimal `json:"amount_ht"`
	VatAmount   decimal.Decimal `json:"vat_amount"`
	VatRate     decimal.Decimal `json:"vat_rate"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Applicable  bool            `json:"is_vat_applicable"`
	Regime      core.VatRegime  `json:"regime_used"`
}

// Impact projects the cash-flow effect of VAT becoming applicable to a
// hypothetical monthly revenue. Net impact is negative: collected VAT
// reduces effective take-home until remitted.
type Impact struct {
	MonthlyVatToCollect decimal.Decimal `json:"monthly_vat_to_collect"`
	AnnualVatToCollect  decimal.Decimal `json:"annual_vat_to_collect"`
	NetImpactMonthly    decimal.Decimal `json:"net_impact_monthly"`
	NetImpactAnnual     decimal.Decimal `json:"net_impact_annual"`
}

// Applicable reports whether VAT applies given the user's settings and the
// current-year revenue. Under franchise the comparison is strictly greater:
// revenue exactly at the threshold keeps the exemption. The predicate is
// monotonic in yearRevenue for fixed franchise settings.
func Applicable(s core.VatSettings, yearRevenue decimal.Decimal) bool {
	if s.VoluntaryRegistration {
		return true
	}
	if s.Regime.Real() {
		return true
	}
	return s.Regime == core.RegimeFranchise &&
		yearRevenue.GreaterThan(s.AnnualRevenueThreshold)
}

// Calculate splits a TTC amount into HT and VAT. When VAT is not applicable
// the amount passes through unchanged with a zero VAT part. HT is rounded
// half-up to 2 decimal places and VAT is the remainder, so
// AmountHT + VatAmount always equals the input exactly.
//
// A zero or negative rate falls back to core.DefaultVatRate. Negative
// amounts (expenses) yield negative HT/VAT, matching the sign convention
// of the caller.
func Calculate(amount decimal.Decimal, s core.VatSettings, yearRevenue, rate decimal.Decimal) Breakdown {
	if !Applicable(s, yearRevenue) {
		return Breakdown{
			AmountHT:    amount,
			VatAmount:   decimal.Zero,
			VatRate:     decimal.Zero,
			TotalAmount: amount,
			Applicable:  false,
			Regime:      s.Regime,
		}
	}
	if !rate.IsPositive() {
		rate = core.DefaultVatRate
	}
	divisor := one.Add(rate.Div(hundred))
	ht := amount.DivRound(divisor, 2)
	return Breakdown{
		AmountHT:    ht,
		VatAmount:   amount.Sub(ht),
		VatRate:     rate,
		TotalAmount: amount,
		Applicable:  true,
		Regime:      s.Regime,
	}
}

// SimulateImpact extracts the VAT share of a TTC monthly revenue figure,
// assuming VAT becomes applicable at the given rate.
func SimulateImpact(monthlyRevenue, rate decimal.Decimal) Impact {
	if !rate.IsPositive() {
		rate = core.DefaultVatRate
	}
	divisor := one.Add(rate.Div(hundred))
	ht := monthlyRevenue.DivRound(divisor, 2)
	monthly := monthlyRevenue.Sub(ht)
	annual := monthly.Mul(decimal.NewFromInt(12))
	return Impact{
		MonthlyVatToCollect: monthly,
		AnnualVatToCollect:  annual,
		NetImpactMonthly:    monthly.Neg(),
		NetImpactAnnual:     annual.Neg(),
	}
}

// RecommendedRegime maps a legal form and annual revenue to the regime a
// new registration would normally elect: micro forms stay in franchise
// below the services threshold, everything else is réel simplifié.
func RecommendedRegime(ls core.LegalStatus, annualRevenue decimal.Decimal) core.VatRegime {
	if !ls.Micro() {
		return core.RegimeReelSimplifie
	}
	if annualRevenue.GreaterThan(core.ServicesRevenueThreshold) {
		return core.RegimeReelSimplifie
	}
	return core.RegimeFranchise
}
