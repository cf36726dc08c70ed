package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"financaspro/internal/core"
	"financaspro/internal/engine"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidMonth), errors.Is(err, core.ErrInvalidDate):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// monthParam reads ?month=YYYY-MM, defaulting to the current month.
func monthParam(r *http.Request) (core.MonthKey, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return core.Today().Month(), nil
	}
	return core.ParseMonthKey(raw)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := fmt.Sprintf("%s|%d", month, s.ledger.Version())
	if view, ok := s.viewCache.Get(key); ok {
		writeJSON(w, http.StatusOK, view)
		return
	}

	view, err := s.ledger.View(month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.viewCache.Set(key, view)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()

	raw := r.URL.Query().Get("month")
	if raw == "" {
		writeJSON(w, http.StatusOK, snap.Transactions)
		return
	}
	month, err := core.ParseMonthKey(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]core.Transaction, 0)
	for _, t := range snap.Transactions {
		if month.Contains(t.Date) {
			out = append(out, t)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type createTransactionRequest struct {
	Description     string          `json:"description"`
	Value           core.Money      `json:"value"`
	Type            string          `json:"type"`
	Category        string          `json:"category"`
	Date            core.Date       `json:"date"`
	Method          string          `json:"method"`
	CardID          core.ID         `json:"cardId,omitempty"`
	Installments    int             `json:"installments,omitempty"`
	InterestPercent decimal.Decimal `json:"interestPercent,omitempty"`
}

func (s *Server) handleCreateTransactions(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	txs, err := s.ledger.CreateTransactions(r.Context(), engine.TransactionInput{
		Description:     req.Description,
		Value:           req.Value,
		Type:            req.Type,
		Category:        req.Category,
		Date:            req.Date,
		Method:          req.Method,
		CardID:          req.CardID,
		Installments:    req.Installments,
		InterestPercent: req.InterestPercent,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txs)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeBody(w, r, &tx); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	tx.ID = core.ID(r.PathValue("id"))

	if err := s.ledger.UpdateTransaction(r.Context(), tx); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), core.ID(r.PathValue("id"))); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Snapshot().Cards)
}

func (s *Server) handleSaveCard(w http.ResponseWriter, r *http.Request) {
	var card core.CreditCard
	if err := decodeBody(w, r, &card); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if id := r.PathValue("id"); id != "" {
		card.ID = core.ID(id)
	}

	saved, err := s.ledger.SaveCard(r.Context(), card)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSON(w, status, saved)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteCard(r.Context(), core.ID(r.PathValue("id"))); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type payInvoiceRequest struct {
	Amount core.Money `json:"amount"`
}

func (s *Server) handlePayInvoice(w http.ResponseWriter, r *http.Request) {
	var req payInvoiceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cardID := core.ID(r.PathValue("id"))
	month := core.MonthKey(r.PathValue("month"))
	if err := s.ledger.PayInvoice(r.Context(), cardID, req.Amount, month); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Snapshot().FixedBills)
}

func (s *Server) handleSaveBill(w http.ResponseWriter, r *http.Request) {
	var bill core.FixedBill
	if err := decodeBody(w, r, &bill); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if id := r.PathValue("id"); id != "" {
		bill.ID = core.ID(id)
	}

	saved, err := s.ledger.SaveFixedBill(r.Context(), bill)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSON(w, status, saved)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteFixedBill(r.Context(), core.ID(r.PathValue("id"))); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type payBillRequest struct {
	Month core.MonthKey `json:"month"`
}

func (s *Server) handlePayBill(w http.ResponseWriter, r *http.Request) {
	var req payBillRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	billID := core.ID(r.PathValue("id"))
	if err := s.ledger.PayFixedBill(r.Context(), billID, req.Month); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.Goals(s.ledger.Snapshot(), month))
}

type setGoalRequest struct {
	Category string      `json:"category"`
	Limit    json.Number `json:"limit"`
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req setGoalRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Category == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing category"})
		return
	}

	if err := s.ledger.SetGoal(r.Context(), req.Category, req.Limit.String()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}

type setBalanceRequest struct {
	InitialBalance core.Money `json:"initialBalance"`
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	var req setBalanceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.ledger.SetInitialBalance(r.Context(), req.InitialBalance); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Snapshot().Categories)
}

type addCategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req addCategoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.ledger.AddCategory(r.Context(), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveCategory(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.ExportJSON()
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="financaspro-backup.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body too large"})
		return
	}
	if err := s.ledger.ImportJSON(r.Context(), body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}
