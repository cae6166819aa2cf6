// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/kindred/internal/auth"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/models"
	"github.com/tomtom215/kindred/internal/receipt"
)

const maxDonationRequestBody = 64 << 10

// CreateDonation starts a donation and returns the gateway handle.
func (h *Handler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req models.DonationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDonationRequestBody)).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be a JSON donation request", err)
		return
	}

	initiation, err := h.deps.Initiator.Initiate(r.Context(), auth.IdentityFrom(r.Context()), &req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, initiation)
}

// GetDonation returns the status of one donation.
func (h *Handler) GetDonation(w http.ResponseWriter, r *http.Request) {
	d, err := h.deps.Donations.Get(r.Context(), auth.IdentityFrom(r.Context()), chi.URLParam(r, "orderId"), auth.ActionRead)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, statusResponse(d))
}

func statusResponse(d *models.Donation) *models.DonationStatusResponse {
	resp := &models.DonationStatusResponse{
		DonationID:    d.ID,
		OrderID:       d.OrderID,
		Status:        string(d.Status),
		Amount:        d.Amount.StringFixed(2),
		Currency:      d.Currency,
		TransactionID: d.TransactionID,
		PaymentMethod: d.PaymentMethod,
		CampaignID:    d.CampaignID,
		Recurring:     d.Recurring && d.RecurrenceCancelledAt == nil,
	}
	if d.SettledAt != nil {
		s := d.SettledAt.UTC().Format(time.RFC3339)
		resp.SettledAt = &s
	}
	return resp
}

// GetReceipt regenerates the receipt PDF of a completed donation.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := h.deps.Donations.Get(ctx, auth.IdentityFrom(ctx), chi.URLParam(r, "orderId"), auth.ActionReadReceipt)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if d.Status != models.StatusCompleted {
		respondServiceError(w, r, ErrReceiptNotAvailable)
		return
	}

	pdf, err := h.deps.Receipts.Render(receipt.FromDonation(d, h.deps.Donations.CampaignTitle(ctx, d.CampaignID)))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render receipt", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+receipt.Filename(d.OrderID)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to write receipt")
	}
}

// CancelRecurrence stops a recurring donation.
func (h *Handler) CancelRecurrence(w http.ResponseWriter, r *http.Request) {
	d, err := h.deps.Donations.CancelRecurrence(r.Context(), auth.IdentityFrom(r.Context()), chi.URLParam(r, "orderId"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"order_id":                d.OrderID,
		"recurrence_cancelled_at": d.RecurrenceCancelledAt,
	})
}

// Reconcile asks the gateway for the current status of a PENDING donation.
// Admin only.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "orderId")
	if _, err := h.deps.Donations.Get(ctx, auth.IdentityFrom(ctx), orderID, auth.ActionReconcile); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if h.deps.Reconciler == nil {
		respondError(w, r, http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE", "Status checks are not configured", nil)
		return
	}
	outcome, err := h.deps.Reconciler.Reconcile(ctx, orderID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, outcome)
}
