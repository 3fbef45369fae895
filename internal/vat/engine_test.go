package vat

import (
	"testing"

	"github.com/shopspring/decimal"

	"microcompta/internal/core"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func franchiseSettings() core.VatSettings {
	s := core.DefaultVatSettings("u1")
	return s
}

func TestApplicable(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*core.VatSettings)
		revenue string
		want    bool
	}{
		{"franchise below threshold", nil, "10000", false},
		{"franchise exactly at threshold", nil, "36800.00", false}, // strict comparison
		{"franchise one cent over", nil, "36800.01", true},
		{"voluntary registration", func(s *core.VatSettings) { s.VoluntaryRegistration = true }, "0", true},
		{"reel simplifie", func(s *core.VatSettings) { s.Regime = core.RegimeReelSimplifie }, "0", true},
		{"reel normal", func(s *core.VatSettings) { s.Regime = core.RegimeReelNormal }, "0", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := franchiseSettings()
			if tc.mutate != nil {
				tc.mutate(&s)
			}
			if got := Applicable(s, dec(tc.revenue)); got != tc.want {
				t.Fatalf("Applicable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestApplicableMonotonic(t *testing.T) {
	s := franchiseSettings()
	crossed := false
	for _, rev := range []string{"0", "36799.99", "36800.00", "36800.01", "50000", "1000000"} {
		got := Applicable(s, dec(rev))
		if crossed && !got {
			t.Fatalf("applicability regressed at revenue %s", rev)
		}
		if got {
			crossed = true
		}
	}
	if !crossed {
		t.Fatalf("applicability never became true")
	}
}

func TestCalculateNotApplicable(t *testing.T) {
	s := franchiseSettings()
	b := Calculate(dec("1200"), s, dec("10000"), decimal.Zero)
	if b.Applicable {
		t.Fatalf("should not be applicable")
	}
	if !b.AmountHT.Equal(dec("1200")) || !b.VatAmount.IsZero() {
		t.Fatalf("pass-through broken: ht=%s vat=%s", b.AmountHT, b.VatAmount)
	}
	if b.Regime != core.RegimeFranchise {
		t.Fatalf("regime = %s", b.Regime)
	}
}

func TestCalculateSplit(t *testing.T) {
	s := franchiseSettings()
	s.Regime = core.RegimeReelSimplifie

	cases := []struct {
		amount string
		rate   string
		wantHT string
	}{
		{"120", "20", "100"},
		{"1200", "20", "1000"},
		{"100", "20", "83.33"},
		{"59.99", "20", "49.99"},
		{"110", "10", "100"},
		{"100", "0", "83.33"}, // zero rate falls back to 20
	}
	for _, tc := range cases {
		b := Calculate(dec(tc.amount), s, decimal.Zero, dec(tc.rate))
		if !b.Applicable {
			t.Fatalf("amount %s: expected applicable", tc.amount)
		}
		if !b.AmountHT.Equal(dec(tc.wantHT)) {
			t.Fatalf("amount %s rate %s: ht = %s, want %s", tc.amount, tc.rate, b.AmountHT, tc.wantHT)
		}
		// HT + VAT must reconstruct the input exactly
		if !b.AmountHT.Add(b.VatAmount).Equal(dec(tc.amount)) {
			t.Fatalf("amount %s: ht(%s) + vat(%s) != total", tc.amount, b.AmountHT, b.VatAmount)
		}
	}
}

func TestCalculateNegativeAmount(t *testing.T) {
	s := franchiseSettings()
	s.Regime = core.RegimeReelNormal
	b := Calculate(dec("-120"), s, decimal.Zero, dec("20"))
	if !b.AmountHT.Equal(dec("-100")) {
		t.Fatalf("negative ht = %s, want -100", b.AmountHT)
	}
	if !b.VatAmount.Equal(dec("-20")) {
		t.Fatalf("negative vat = %s, want -20", b.VatAmount)
	}
}

func TestSimulateImpact(t *testing.T) {
	im := SimulateImpact(dec("3600"), dec("20"))
	if !im.MonthlyVatToCollect.Equal(dec("600")) {
		t.Fatalf("monthly = %s, want 600", im.MonthlyVatToCollect)
	}
	if !im.AnnualVatToCollect.Equal(dec("7200")) {
		t.Fatalf("annual = %s, want 7200", im.AnnualVatToCollect)
	}
	if !im.NetImpactMonthly.Equal(dec("-600")) || !im.NetImpactAnnual.Equal(dec("-7200")) {
		t.Fatalf("net impact = %s / %s", im.NetImpactMonthly, im.NetImpactAnnual)
	}
}

func TestRecommendedRegime(t *testing.T) {
	cases := []struct {
		status  core.LegalStatus
		revenue string
		want    core.VatRegime
	}{
		{core.StatusMicroEntreprise, "20000", core.RegimeFranchise},
		{core.StatusAutoEntrepreneur, "36800", core.RegimeFranchise},
		{core.StatusMicroEntreprise, "36800.01", core.RegimeReelSimplifie},
		{core.StatusSASU, "0", core.RegimeReelSimplifie},
		{core.StatusSARL, "500000", core.RegimeReelSimplifie},
		{core.StatusEURL, "1000", core.RegimeReelSimplifie},
	}
	for _, tc := range cases {
		if got := RecommendedRegime(tc.status, dec(tc.revenue)); got != tc.want {
			t.Fatalf("RecommendedRegime(%s, %s) = %s, want %s", tc.status, tc.revenue, got, tc.want)
		}
	}
}
