/**
 * @description
 * HTTP handlers for the donation lifecycle endpoints: creation (with QR
 * issuance for bank transfers), listing, editing, and the manager-driven
 * confirm/reject transitions.
 */

package api

import (
	"encoding/json"
	"net/http"

	"github.com/famtree/ledger-service/internal/domain"
)

type decisionRequest struct {
	Notes  string `json:"notes,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// CreateDonationHandler handles requests to record a donation against a fund.
func (h *LedgerHandlers) CreateDonationHandler(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.uuidParam(w, r, "fundID")
	if !ok {
		return
	}
	var req domain.CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.CreateDonation(r.Context(), fundID, req)
	if err != nil {
		h.writeServiceError(w, err, "create_donation")
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// ListDonationsHandler handles requests to list a fund's donations.
func (h *LedgerHandlers) ListDonationsHandler(w http.ResponseWriter, r *http.Request) {
	fundID, ok := h.uuidParam(w, r, "fundID")
	if !ok {
		return
	}
	donations, err := h.service.ListDonations(r.Context(), fundID, listOptionsFromQuery(r))
	if err != nil {
		h.writeServiceError(w, err, "list_donations")
		return
	}
	if donations == nil {
		donations = []domain.Donation{}
	}
	h.writeJSON(w, http.StatusOK, donations)
}

// GetDonationHandler handles requests to fetch one donation.
func (h *LedgerHandlers) GetDonationHandler(w http.ResponseWriter, r *http.Request) {
	donationID, ok := h.uuidParam(w, r, "donationID")
	if !ok {
		return
	}
	donation, err := h.service.GetDonation(r.Context(), donationID)
	if err != nil {
		h.writeServiceError(w, err, "get_donation")
		return
	}
	h.writeJSON(w, http.StatusOK, donation)
}

// UpdateDonationHandler handles requests to edit a pending donation.
func (h *LedgerHandlers) UpdateDonationHandler(w http.ResponseWriter, r *http.Request) {
	donationID, ok := h.uuidParam(w, r, "donationID")
	if !ok {
		return
	}
	var req domain.UpdateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	donation, err := h.service.UpdateDonation(r.Context(), donationID, req)
	if err != nil {
		h.writeServiceError(w, err, "update_donation")
		return
	}
	h.writeJSON(w, http.StatusOK, donation)
}

// DeleteDonationHandler handles requests to soft-delete a pending donation.
func (h *LedgerHandlers) DeleteDonationHandler(w http.ResponseWriter, r *http.Request) {
	donationID, ok := h.uuidParam(w, r, "donationID")
	if !ok {
		return
	}
	if err := h.service.DeleteDonation(r.Context(), donationID); err != nil {
		h.writeServiceError(w, err, "delete_donation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmDonationHandler handles a manager's confirmation of a pending donation.
func (h *LedgerHandlers) ConfirmDonationHandler(w http.ResponseWriter, r *http.Request) {
	donationID, ok := h.uuidParam(w, r, "donationID")
	if !ok {
		return
	}
	confirmerID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	donation, err := h.service.ConfirmDonation(r.Context(), donationID, confirmerID, req.Notes)
	if err != nil {
		h.writeServiceError(w, err, "confirm_donation")
		return
	}
	h.writeJSON(w, http.StatusOK, donation)
}

// RejectDonationHandler handles a manager's rejection of a pending donation.
func (h *LedgerHandlers) RejectDonationHandler(w http.ResponseWriter, r *http.Request) {
	donationID, ok := h.uuidParam(w, r, "donationID")
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

	donation, err := h.service.RejectDonation(r.Context(), donationID, rejecterID, req.Reason)
	if err != nil {
		h.writeServiceError(w, err, "reject_donation")
		return
	}
	h.writeJSON(w, http.StatusOK, donation)
}
