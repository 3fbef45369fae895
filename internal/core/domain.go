package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	RegimeFranchise     VatRegime = "franchise"
	RegimeReelSimplifie VatRegime = "reel_simplifie"
	RegimeReelNormal    VatRegime = "reel_normal"
)

const (
	StatusMicroEntreprise  LegalStatus = "micro_entreprise"
	StatusAutoEntrepreneur LegalStatus = "auto_entrepreneur"
	StatusEI               LegalStatus = "ei"
	StatusEURL             LegalStatus = "eurl"
	StatusSASU             LegalStatus = "sasu"
	StatusSAS              LegalStatus = "sas"
	StatusSARL             LegalStatus = "sarl"
)

// ServicesRevenueThreshold is the franchise en base ceiling for service
// activities (BNC), in euros.
var ServicesRevenueThreshold = decimal.NewFromInt(36800)

// DefaultVatRate is the French standard VAT rate in percent.
var DefaultVatRate = decimal.NewFromInt(20)

type (
	TransactionType string
	VatRegime       string
	LegalStatus     string

	Date struct {
		time.Time
	}

	// Transaction is one financial movement. Amount is the TTC value; the
	// HT/VAT decomposition is optional and derived at write time when absent.
	// Type, not the amount sign, classifies income vs expense.
	Transaction struct {
		ID          string          `json:"id"`
		UserID      string          `json:"user_id"`
		Amount      decimal.Decimal `json:"amount"`
		AmountHT    decimal.Decimal `json:"amount_ht"`
		VatAmount   decimal.Decimal `json:"vat_amount"`
		VatRate     decimal.Decimal `json:"vat_rate"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
		ClientName  string          `json:"client_name,omitempty"`
		Status      string          `json:"status"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	// VatSettings holds one user's VAT profile. CurrentYearRevenue is a
	// denormalized aggregate maintained by the recompute worker; readers
	// must treat it as possibly stale between recomputes.
	VatSettings struct {
		UserID                 string          `json:"user_id"`
		Regime                 VatRegime       `json:"vat_regime"`
		RegimeStartDate        Date            `json:"vat_regime_start_date"`
		VoluntaryRegistration  bool            `json:"voluntary_vat_registration"`
		AnnualRevenueThreshold decimal.Decimal `json:"annual_revenue_threshold"`
		CurrentYearRevenue     decimal.Decimal `json:"current_year_revenue"`
		AlertsEnabled          bool            `json:"vat_alerts_enabled"`
		LegalStatus            LegalStatus     `json:"legal_status"`
		RevenueUpdatedAt       time.Time       `json:"revenue_updated_at"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyUser     = errors.New("empty user id")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidRegime = errors.New("invalid vat regime")
	ErrInvalidStatus = errors.New("invalid legal status")

	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidThreshold   = errors.New("revenue threshold must be positive")

	ErrNotFound = errors.New("not found")
)

// NewDate creates a Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MarshalJSON renders the date as "2006-01-02".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// UnmarshalJSON accepts "2006-01-02" or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return ErrInvalidDate
	}
	d.Time = t
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (r VatRegime) Valid() bool {
	switch r {
	case RegimeFranchise, RegimeReelSimplifie, RegimeReelNormal:
		return true
	default:
		return false
	}
}

// Real reports whether the regime requires periodic VAT collection.
func (r VatRegime) Real() bool {
	return r == RegimeReelSimplifie || r == RegimeReelNormal
}

func (ls LegalStatus) Valid() bool {
	switch ls {
	case StatusMicroEntreprise, StatusAutoEntrepreneur, StatusEI,
		StatusEURL, StatusSASU, StatusSAS, StatusSARL:
		return true
	default:
		return false
	}
}

// Micro reports whether the legal form is a micro-entrepreneur variant,
// the only forms eligible for franchise en base by default.
func (ls LegalStatus) Micro() bool {
	return ls == StatusMicroEntreprise || ls == StatusAutoEntrepreneur
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

// Signed returns the amount with an explicit sign derived from the type:
// positive for income, negative for expense.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Abs().Neg()
	}
	return t.Amount.Abs()
}

func (s VatSettings) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrEmptyUser
	}
	if !s.Regime.Valid() {
		return ErrInvalidRegime
	}
	if !s.LegalStatus.Valid() {
		return ErrInvalidStatus
	}
	if !s.AnnualRevenueThreshold.IsPositive() {
		return ErrInvalidThreshold
	}
	return nil
}

// DefaultVatSettings returns the profile created for a new user: franchise
// en base with the services threshold and alerts on.
func DefaultVatSettings(userID string) VatSettings {
	return VatSettings{
		UserID:                 userID,
		Regime:                 RegimeFranchise,
		AnnualRevenueThreshold: ServicesRevenueThreshold,
		CurrentYearRevenue:     decimal.Zero,
		AlertsEnabled:          true,
		LegalStatus:            StatusMicroEntreprise,
	}
}
