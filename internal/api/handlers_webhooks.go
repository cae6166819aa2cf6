// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/models"
	"github.com/tomtom215/kindred/internal/payment"
)

// PushSignatureHeader carries the push gateway's webhook signature.
const PushSignatureHeader = "Stripe-Signature"

const maxWebhookBody = 1 << 20

// PushWebhook receives push-model gateway events.
//
// Anything the gateway should not retry is acknowledged with 200: applied,
// duplicate, ignored and unknown-order events. Verification failures get
// 400. Store errors get 500 so the gateway redelivers.
func (h *Handler) PushWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_PAYLOAD", "Unable to read request body", err)
		return
	}

	outcome, err := h.deps.Ingestor.HandlePush(r.Context(), body, r.Header.Get(PushSignatureHeader))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"received": true, "result": outcome.Result})
	case errors.Is(err, payment.ErrDonationNotFound):
		writeJSON(w, http.StatusOK, map[string]interface{}{"received": true, "result": "unknown_order"})
	case errors.Is(err, payment.ErrUnsupportedGateway):
		respondError(w, r, http.StatusNotFound, "UNSUPPORTED_GATEWAY", "Push gateway is not configured", nil)
	default:
		respondServiceError(w, r, err)
	}
}

// RedirectCallback receives the payer's browser back from the
// redirect-model gateway and always answers 303 to the frontend.
func (h *Handler) RedirectCallback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	if err := r.ParseForm(); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Unparseable redirect callback")
		h.redirectFailed(w, r, "", "Invalid payment response")
		return
	}

	params := make(map[string]string, len(r.Form))
	for key, values := range r.Form {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	orderID := params["ORDERID"]

	outcome, err := h.deps.Ingestor.HandleRedirect(r.Context(), params)
	if err != nil {
		logging.Ctx(logging.ContextWithOrderID(r.Context(), orderID)).Warn().
			Str("error", sanitizeLogValue(err.Error())).
			Msg("Redirect callback rejected")
		message := "Payment could not be processed"
		switch {
		case isSignatureError(err):
			message = "Payment verification failed"
		case errors.Is(err, payment.ErrDonationNotFound):
			message = "Order not found"
		}
		h.redirectFailed(w, r, orderID, message)
		return
	}

	switch outcome.Status {
	case models.StatusCompleted:
		h.redirect(w, r, "/payment-success", url.Values{
			"orderId":    {outcome.OrderID},
			"donationId": {outcome.DonationID},
		})
	case models.StatusPending:
		h.redirectFailed(w, r, outcome.OrderID, "Payment is pending confirmation")
	default:
		message := outcome.Message
		if message == "" {
			message = "Payment failed"
		}
		h.redirectFailed(w, r, outcome.OrderID, message)
	}
}

func (h *Handler) redirectFailed(w http.ResponseWriter, r *http.Request, orderID, message string) {
	h.redirect(w, r, "/payment-failed", url.Values{"orderId": {orderID}, "message": {message}})
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, path string, query url.Values) {
	target := strings.TrimRight(h.deps.FrontendURL, "/") + path + "?" + query.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}
