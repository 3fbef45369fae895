package http

import (
	"net/http"
)

// handleDashboard serves the aggregated snapshot. ?force=1 skips the
// cache. This endpoint never fails: a broken store yields the zeroed
// snapshot.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, userID string) {
	force := r.URL.Query().Get("force")
	data := s.dashboard.Snapshot(r.Context(), userID, force == "1" || force == "true")
	writeJSON(w, http.StatusOK, data)
}
