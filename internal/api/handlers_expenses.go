/**
 * @description
 * HTTP handlers for the expense lifecycle endpoints: creation, listing,
 * editing, and the manager-driven approve/reject transitions. Approval debits
 * the fund balance and therefore requires a payment proof URL.
 */

package api

import (
	"encoding/json"
	"net/http"

	"github.com/famtree/ledger-service/internal/domain"
)

type approveExpenseRequest struct {
	PaymentProofURL string `json:"payment_proof_url"`
	Notes           string `json:"notes,omitempty"`
}

// CreateExpenseHandler handles requests to record an expense against a fund.
func (h *LedgerHandlers) CreateExpenseHandler(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.uuidParam(w, r, "fundID")
	if !ok {
		return
	}
	var req domain.CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	expense, err := h.service.CreateExpense(r.Context(), fundID, req)
	if err != nil {
		h.writeServiceError(w, err, "create_expense")
		return
	}
	h.writeJSON(w, http.StatusCreated, expense)
}

// ListExpensesHandler handles requests to list a fund's expenses.
func (h *LedgerHandlers) ListExpensesHandler(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.uuidParam(w, r, "fundID")
	if !ok {
		return
	}
	expenses, err := h.service.ListExpenses(r.Context(), fundID, listOptionsFromQuery(r))
	if err != nil {
		h.writeServiceError(w, err, "list_expenses")
		return
	}
	if expenses == nil {
		expenses = []domain.Expense{}
	}
	h.writeJSON(w, http.StatusOK, expenses)
}

// GetExpenseHandler handles requests to fetch one expense.
func (h *LedgerHandlers) GetExpenseHandler(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := h.uuidParam(w, r, "expenseID")
	if !ok {
		return
	}
	expense, err := h.service.GetExpense(r.Context(), expenseID)
	if err != nil {
		h.writeServiceError(w, err, "get_expense")
		return
	}
	h.writeJSON(w, http.StatusOK, expense)
}

// UpdateExpenseHandler handles requests to edit a pending expense.
func (h *LedgerHandlers) UpdateExpenseHandler(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := h.uuidParam(w, r, "expenseID")
	if !ok {
		return
	}
	var req domain.UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	expense, err := h.service.UpdateExpense(r.Context(), expenseID, req)
	if err != nil {
		h.writeServiceError(w, err, "update_expense")
		return
	}
	h.writeJSON(w, http.StatusOK, expense)
}

// DeleteExpenseHandler handles requests to soft-delete a pending expense.
func (h *LedgerHandlers) DeleteExpenseHandler(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := h.uuidParam(w, r, "expenseID")
	if !ok {
		return
	}
	if err := h.service.DeleteExpense(r.Context(), expenseID); err != nil {
		h.writeServiceError(w, err, "delete_expense")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveExpenseHandler handles a manager's approval of a pending expense.
func (h *LedgerHandlers) ApproveExpenseHandler(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := h.uuidParam(w, r, "expenseID")
	if !ok {
		return
	}
	approverID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	var req approveExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	expense, err := h.service.ApproveExpense(r.Context(), expenseID, approverID, req.PaymentProofURL, req.Notes)
	if err != nil {
		h.writeServiceError(w, err, "approve_expense")
		return
	}
	h.writeJSON(w, http.StatusOK, expense)
}

// RejectExpenseHandler handles a manager's rejection of a pending expense.
func (h *LedgerHandlers) RejectExpenseHandler(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := h.uuidParam(w, r, "expenseID")
	if !ok {
		return
	}
	rejecterID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	expense, err := h.service.RejectExpense(r.Context(), expenseID, rejecterID, req.Reason)
	if err != nil {
		h.writeServiceError(w, err, "reject_expense")
		return
	}
	h.writeJSON(w, http.StatusOK, expense)
}
