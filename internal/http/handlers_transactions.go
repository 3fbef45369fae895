package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"microcompta/internal/core"
	"microcompta/internal/ledger"
)

type transactionRequest struct {
	Amount      decimal.Decimal      `json:"amount"`
	VatRate     decimal.Decimal      `json:"vat_rate"`
	Type        core.TransactionType `json:"type"`
	Category    string               `json:"category"`
	Description string               `json:"description"`
	Date        core.Date            `json:"date"`
	ClientName  string               `json:"client_name"`
	Status      string               `json:"status"`
}

type transactionPatchRequest struct {
	Amount      *decimal.Decimal      `json:"amount"`
	VatRate     *decimal.Decimal      `json:"vat_rate"`
	Type        *core.TransactionType `json:"type"`
	Category    *string               `json:"category"`
	Description *string               `json:"description"`
	Date        *core.Date            `json:"date"`
	ClientName  *string               `json:"client_name"`
	Status      *string               `json:"status"`
}

type transactionListResponse struct {
	Items    []core.Transaction `json:"items"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	f := parseFilter(r)
	items, total, err := s.transactions.List(r.Context(), userID, f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	norm := f.Normalize()
	writeJSON(w, http.StatusOK, transactionListResponse{
		Items:    items,
		Total:    total,
		Page:     norm.Page,
		PageSize: norm.PageSize,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	tx := core.Transaction{
		UserID:      userID,
		Amount:      req.Amount,
		VatRate:     req.VatRate,
		Type:        req.Type,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Date:        req.Date,
		ClientName:  strings.TrimSpace(req.ClientName),
		Status:      req.Status,
	}
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.transactions.Create(r.Context(), tx)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	tx, err := s.transactions.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	var req transactionPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	patch := ledger.Patch{
		Amount:      req.Amount,
		VatRate:     req.VatRate,
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
		ClientName:  req.ClientName,
		Status:      req.Status,
	}
	updated, err := s.transactions.Update(r.Context(), userID, r.PathValue("id"), patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.transactions.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

type bulkDeleteResponse struct {
	Deleted int `json:"deleted"`
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request, userID string) {
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "ids must not be empty")
		return
	}

	deleted, err := s.transactions.BulkDelete(r.Context(), userID, req.IDs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkDeleteResponse{Deleted: deleted})
}

func parseFilter(r *http.Request) ledger.Filter {
	q := r.URL.Query()
	f := ledger.Filter{
		Search: strings.TrimSpace(q.Get("search")),
		Type:   core.TransactionType(q.Get("type")),
	}

	if cats := q.Get("categories"); cats != "" {
		for _, c := range strings.Split(cats, ",") {
			if c = strings.TrimSpace(c); c != "" {
				f.Categories = append(f.Categories, c)
			}
		}
	}
	if d, ok := parseQueryDate(q.Get("from")); ok {
		f.From = d
	}
	if d, ok := parseQueryDate(q.Get("to")); ok {
		f.To = d
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = page
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil {
		f.PageSize = size
	}
	return f
}

func parseQueryDate(v string) (core.Date, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return core.Date{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
	if err != nil {
		return core.Date{}, false
	}
	return core.DateOf(t), true
}
