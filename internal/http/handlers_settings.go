package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"microcompta/internal/core"
)

type settingsRequest struct {
	Regime                 core.VatRegime   `json:"vat_regime"`
	RegimeStartDate        core.Date        `json:"vat_regime_start_date"`
	VoluntaryRegistration  bool             `json:"voluntary_vat_registration"`
	AnnualRevenueThreshold *decimal.Decimal `json:"annual_revenue_threshold"`
	AlertsEnabled          bool             `json:"vat_alerts_enabled"`
	LegalStatus            core.LegalStatus `json:"legal_status"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request, userID string) {
	settings, err := s.transactions.Settings(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleSaveSettings replaces the user's VAT profile. The year revenue
// aggregate is never writable through the API.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request, userID string) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	settings := core.DefaultVatSettings(userID)
	settings.Regime = req.Regime
	settings.RegimeStartDate = req.RegimeStartDate
	settings.VoluntaryRegistration = req.VoluntaryRegistration
	settings.AlertsEnabled = req.AlertsEnabled
	if req.LegalStatus != "" {
		settings.LegalStatus = req.LegalStatus
	}
	if req.AnnualRevenueThreshold != nil {
		settings.AnnualRevenueThreshold = *req.AnnualRevenueThreshold
	}

	if err := settings.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.transactions.SaveSettings(r.Context(), settings); err != nil {
		writeDomainError(w, r, err)
		return
	}

	saved, err := s.transactions.Settings(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
