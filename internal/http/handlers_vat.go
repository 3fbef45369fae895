package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"microcompta/internal/vat"
)

type vatSimulationResponse struct {
	Impact            vat.Impact `json:"impact"`
	RecommendedRegime string     `json:"recommended_regime"`
}

// handleVatSimulation projects the cash-flow impact of VAT becoming
// applicable at the given monthly revenue. Parameters come in as query
// values: monthly_revenue (required) and rate (optional, defaults to the
// standard rate).
func (s *Server) handleVatSimulation(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()

	monthly, err := decimal.NewFromString(q.Get("monthly_revenue"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "monthly_revenue must be a decimal number")
		return
	}
	if monthly.IsNegative() {
		writeError(w, http.StatusUnprocessableEntity, "monthly_revenue must not be negative")
		return
	}

	rate := decimal.Zero
	if v := q.Get("rate"); v != "" {
		rate, err = decimal.NewFromString(v)
		if err != nil || rate.IsNegative() {
			writeError(w, http.StatusUnprocessableEntity, "rate must be a non-negative decimal number")
			return
		}
	}

	settings, err := s.transactions.Settings(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	annual := monthly.Mul(decimal.NewFromInt(12))
	writeJSON(w, http.StatusOK, vatSimulationResponse{
		Impact:            vat.SimulateImpact(monthly, rate),
		RecommendedRegime: string(vat.RecommendedRegime(settings.LegalStatus, annual)),
	})
}
