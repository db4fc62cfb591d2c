package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"mico/internal/core"
)

type transactionDTO struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Category    string `json:"category"`
	Status      string `json:"status"`
}

func toDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:          t.ID,
		Date:        t.Date.UTC().Format(time.RFC3339),
		Description: t.Description,
		Amount:      t.Amount.Cents,
		Category:    t.Category,
		Status:      string(t.Status),
	}
}

// handleListTransactions returns the full list, date descending, plus the
// grand total. The total rides in a one-element array of stringified
// numbers; existing clients parse exactly that shape.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, total, err := s.store.ListTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions failed", "error", err)
		writeStoreError(w, err)
		return
	}

	dtos := make([]transactionDTO, len(txns))
	for i, t := range txns {
		dtos[i] = toDTO(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": dtos,
		"totalAmount": []map[string]string{
			{"totalAmount": strconv.FormatInt(total, 10)},
		},
	})
}

type createTransactionRequest struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Status      string  `json:"status"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date: "+req.Date)
		return
	}
	cents, err := core.RoundToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	t := core.Transaction{
		Date:        date,
		Description: req.Description,
		Amount:      core.Money{Cents: cents},
		Category:    req.Category,
		Status:      core.Status(req.Status),
	}
	if err := t.Validate(); err != nil {
		writeStoreError(w, err)
		return
	}

	id, err := s.store.CreateTransaction(r.Context(), t)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create transaction failed", "error", err)
		writeStoreError(w, err)
		return
	}

	s.publishChanged(r, id, "create")
	writeSuccess(w)
}

type updateTransactionRequest struct {
	Date        *string  `json:"date"`
	Description *string  `json:"description"`
	Amount      *float64 `json:"amount"`
	Category    *string  `json:"category"`
	Status      *string  `json:"status"`
}

// updates builds the typed field-update list from the partial body.
func (req updateTransactionRequest) updates() ([]core.FieldUpdate, error) {
	var out []core.FieldUpdate
	if req.Date != nil {
		d, err := core.ParseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, core.UpdateDate(d))
	}
	if req.Description != nil {
		out = append(out, core.UpdateDescription(*req.Description))
	}
	if req.Amount != nil {
		cents, err := core.RoundToCents(*req.Amount)
		if err != nil {
			return nil, err
		}
		out = append(out, core.UpdateAmount(core.Money{Cents: cents}))
	}
	if req.Category != nil {
		out = append(out, core.UpdateCategory(*req.Category))
	}
	if req.Status != nil {
		out = append(out, core.UpdateStatus(core.Status(*req.Status)))
	}
	return out, nil
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	updates, err := req.updates()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if len(updates) == 0 {
		writeSuccess(w)
		return
	}

	if err := s.store.UpdateTransaction(r.Context(), id, updates); err != nil {
		slog.ErrorContext(r.Context(), "Update transaction failed", "error", err, "id", id)
		writeStoreError(w, err)
		return
	}

	s.publishChanged(r, id, "update")
	writeSuccess(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteTransaction(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Delete transaction failed", "error", err, "id", id)
		writeStoreError(w, err)
		return
	}
	s.publishChanged(r, id, "delete")
	writeSuccess(w)
}

type queryRequest struct {
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
	Category  *string `json:"category"`
}

type summaryDTO struct {
	TotalAmount *int64 `json:"totalAmount"`
	Count       int    `json:"count"`
}

// handleQueryTransactions implements the filtered summary. A lone date
// bound deactivates the date predicate entirely; both must be present.
func (s *Server) handleQueryTransactions(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var f core.QueryFilter
	if req.StartDate != nil && *req.StartDate != "" {
		d, err := core.ParseDate(*req.StartDate)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid startDate: "+*req.StartDate)
			return
		}
		f.StartDate = &d
	}
	if req.EndDate != nil && *req.EndDate != "" {
		d, err := core.ParseDate(*req.EndDate)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid endDate: "+*req.EndDate)
			return
		}
		f.EndDate = &d
	}
	if req.Category != nil && *req.Category != "" {
		f.Category = req.Category
	}

	summary, err := s.store.Summarize(r.Context(), f)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summarize failed", "error", err)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary": summaryDTO{TotalAmount: summary.TotalAmount, Count: summary.Count},
	})
}

// publishChanged notifies the export pipeline. Failures are logged, never
// surfaced: the record is already durable locally.
func (s *Server) publishChanged(r *http.Request, id, op string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionChanged(r.Context(), id, op); err != nil {
		slog.ErrorContext(r.Context(), "Publish transaction event failed",
			"error", err, "id", id, "op", op)
	}
}
