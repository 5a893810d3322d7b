/**
 * @description
 * This file contains the HTTP handlers for the ledger-service's fund endpoints,
 * together with the response helpers shared by every handler. Handlers are
 * responsible for parsing incoming requests, calling the appropriate methods on
 * the application service, and writing the HTTP response. They act as the bridge
 * between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, errors, log, net/http, strconv: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 * - pkg/paygate: For the gateway error sentinels.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/famtree/ledger-service/internal/app"
	"github.com/famtree/ledger-service/internal/domain"
	"github.com/famtree/ledger-service/internal/store"
	"github.com/famtree/ledger-service/pkg/paygate"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the business and store error sentinels onto HTTP
// status codes. Anything unrecognized is logged and reported as a 500 without
// leaking internals.
func (h *LedgerHandlers) writeServiceError(w http.ResponseWriter, err error, context string) {
	switch {
	case errors.Is(err, store.ErrFundNotFound):
		h.writeError(w, http.StatusNotFound, "Fund not found")
	case errors.Is(err, store.ErrDonationNotFound):
		h.writeError(w, http.StatusNotFound, "Donation not found")
	case errors.Is(err, store.ErrExpenseNotFound):
		h.writeError(w, http.StatusNotFound, "Expense not found")
	case errors.Is(err, app.ErrDonationAlreadyConfirmed):
		h.writeError(w, http.StatusConflict, "Donation is already confirmed")
	case errors.Is(err, store.ErrDonationFinalized):
		h.writeError(w, http.StatusConflict, "Donation has already been finalized")
	case errors.Is(err, store.ErrExpenseFinalized):
		h.writeError(w, http.StatusConflict, "Expense has already been finalized")
	case errors.Is(err, app.ErrBankAccountIncomplete):
		h.writeError(w, http.StatusUnprocessableEntity, "Fund bank account details are incomplete")
	case errors.Is(err, store.ErrInsufficientFunds):
		h.writeError(w, http.StatusUnprocessableEntity, "Insufficient fund balance for this expense")
	case errors.Is(err, app.ErrMissingPaymentProof):
		h.writeError(w, http.StatusUnprocessableEntity, "A payment proof URL is required for approval")
	case errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrInvalidPaymentMethod),
		errors.Is(err, app.ErrInvalidFundKind),
		errors.Is(err, app.ErrEmptyFundName),
		errors.Is(err, app.ErrMissingReason),
		errors.Is(err, app.ErrMissingDescription):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, paygate.ErrGatewayUnavailable):
		h.writeError(w, http.StatusBadGateway, "Payment gateway is unavailable, please try again later")
	default:
		var apiErr *paygate.ErrorResponse
		if errors.As(err, &apiErr) {
			log.Printf("level=error component=api msg=\"payment gateway rejected request\" context=%s err=%v", context, err)
			h.writeError(w, http.StatusBadGateway, "Payment gateway rejected the request")
			return
		}
		log.Printf("level=error component=api msg=\"unexpected error\" context=%s err=%v", context, err)
		h.writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// uuidParam extracts and parses a UUID URL parameter. It writes a 400 response
// and returns false when the parameter is malformed.
func (h *LedgerHandlers) uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid "+name+" in URL")
		return uuid.Nil, false
	}
	return id, true
}

// actorID resolves the authenticated member's UUID from the request context.
func (h *LedgerHandlers) actorID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sub, ok := GetMemberID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get member ID from context")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "Token subject is not a valid member ID")
		return uuid.Nil, false
	}
	return id, true
}

func listOptionsFromQuery(r *http.Request) domain.ListOptions {
	opts := domain.ListOptions{}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		opts.Page = page
	}
	if size, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil {
		opts.PageSize = size
	}
	return opts
}

// CreateFundHandler handles requests to create a new fund or campaign.
func (h *LedgerHandlers) CreateFundHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateFundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fund, err := h.service.CreateFund(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "create_fund")
		return
	}
	h.writeJSON(w, http.StatusCreated, fund)
}

// ListFundsHandler handles requests to list funds, optionally filtered by kind.
func (h *LedgerHandlers) ListFundsHandler(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	funds, err := h.service.ListFunds(r.Context(), kind, listOptionsFromQuery(r))
	if err != nil {
		h.writeServiceError(w, err, "list_funds")
		return
	}
	if funds == nil {
		funds = []domain.Fund{}
	}
	h.writeJSON(w, http.StatusOK, funds)
}

// GetFundHandler handles requests to fetch one fund.
func (h *LedgerHandlers) GetFundHandler(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.uuidParam(w, r, "fundID")
	if !ok {
		return
	}
	fund, err := h.service.GetFund(r.Context(), fundID)
	if err != nil {
		h.writeServiceError(w, err, "get_fund")
		return
	}
	h.writeJSON(w, http.StatusOK, fund)
}

// UpdateFundHandler handles requests to update fund metadata.
func (h *LedgerHandlers) UpdateFundHandler(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.uuidParam(w, r, "fundID")
	if !ok {
		return
	}
	var req domain.UpdateFundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fund, err := h.service.UpdateFund(r.Context(), fundID, req)
	if err != nil {
		h.writeServiceError(w, err, "update_fund")
		return
	}
	h.writeJSON(w, http.StatusOK, fund)
}

// DeleteFundHandler handles requests to soft-delete a fund and its ledger.
func (h *LedgerHandlers) DeleteFundHandler(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.uuidParam(w, r, "fundID")
	if !ok {
		return
	}
	if err := h.service.DeleteFund(r.Context(), fundID); err != nil {
		h.writeServiceError(w, err, "delete_fund")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetFundStatsHandler handles requests for a fund's per-status aggregates.
func (h *LedgerHandlers) GetFundStatsHandler(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.uuidParam(w, r, "fundID")
	if !ok {
		return
	}
	stats, err := h.service.GetFundStats(r.Context(), fundID)
	if err != nil {
		h.writeServiceError(w, err, "get_fund_stats")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// ListTopDonorsHandler handles requests for a fund's confirmed-donation ranking.
func (h *LedgerHandlers) ListTopDonorsHandler(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.uuidParam(w, r, "fundID")
	if !ok {
		return
	}
	limit := 10
	if raw, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && raw > 0 {
		limit = raw
	}

	donors, err := h.service.ListTopDonors(r.Context(), fundID, limit)
	if err != nil {
		h.writeServiceError(w, err, "list_top_donors")
		return
	}
	if donors == nil {
		donors = []domain.TopDonor{}
	}
	h.writeJSON(w, http.StatusOK, donors)
}

// ListPendingItemsHandler handles requests for everything awaiting a decision.
func (h *LedgerHandlers) ListPendingItemsHandler(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.uuidParam(w, r, "fundID")
	if !ok {
		return
	}
	items, err := h.service.ListPendingItems(r.Context(), fundID)
	if err != nil {
		h.writeServiceError(w, err, "list_pending_items")
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}
