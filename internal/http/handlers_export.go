package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"microcompta/internal/core"
	"microcompta/internal/export"
)

// handleExport streams the transaction listing in the requested format.
// Without a date range it exports the current calendar year.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()

	format := export.Format(q.Get("format"))
	if format == "" {
		format = export.FormatCSV
	}
	if !format.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "unsupported format: "+string(format))
		return
	}

	now := time.Now()
	from := core.NewDate(now.Year(), 1, 1)
	to := core.DateOf(now)
	if d, ok := parseQueryDate(q.Get("from")); ok {
		from = d
	}
	if d, ok := parseQueryDate(q.Get("to")); ok {
		to = d
	}
	if to.Before(from.Time) {
		writeError(w, http.StatusUnprocessableEntity, "from must not be after to")
		return
	}

	txs, err := s.transactions.ListRange(r.Context(), userID, from, to)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	filename := fmt.Sprintf("transactions_%s_%s%s",
		from.Format("2006-01-02"), to.Format("2006-01-02"), format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	switch format {
	case export.FormatCSV:
		err = export.WriteCSV(w, txs)
	case export.FormatHTML:
		err = export.WriteHTML(w, txs, now)
	case export.FormatXLSX:
		err = export.WriteXLSX(w, txs)
	}
	if err != nil {
		// Headers are already out; all we can do is log.
		slog.ErrorContext(r.Context(), "Export failed", "format", format, "error", err)
	}
}
