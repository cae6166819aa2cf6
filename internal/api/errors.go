// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/kindred/internal/gateway"
	"github.com/tomtom215/kindred/internal/models"
	"github.com/tomtom215/kindred/internal/payment"
	"github.com/tomtom215/kindred/internal/signature"
	"github.com/tomtom215/kindred/internal/validation"
)

// ErrReceiptNotAvailable is returned for receipts of unsettled or failed donations.
var ErrReceiptNotAvailable = errors.New("receipt is only available for completed donations")

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{payment.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be positive with at most two decimal places"},
	{payment.ErrCampaignNotFound, http.StatusNotFound, "CAMPAIGN_NOT_FOUND", "Campaign not found"},
	{payment.ErrCampaignEnded, http.StatusUnprocessableEntity, "CAMPAIGN_ENDED", "Campaign has ended"},
	{payment.ErrCurrencyMismatch, http.StatusUnprocessableEntity, "CURRENCY_MISMATCH", "Currency does not match the campaign"},
	{payment.ErrUnsupportedGateway, http.StatusBadRequest, "UNSUPPORTED_GATEWAY", "Payment gateway is not available"},
	{payment.ErrDonationNotFound, http.StatusNotFound, "NOT_FOUND", "Donation not found"},
	{payment.ErrNotOwner, http.StatusForbidden, "FORBIDDEN", "Not allowed to access this donation"},
	{payment.ErrNotRecurring, http.StatusConflict, "NOT_RECURRING", "Donation is not an active recurring donation"},
	{payment.ErrMalformedPayload, http.StatusBadRequest, "INVALID_PAYLOAD", "Malformed notification payload"},
	{ErrReceiptNotAvailable, http.StatusConflict, "RECEIPT_NOT_AVAILABLE", "Receipt is only available for completed donations"},
	{gateway.ErrGatewayUnavailable, http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE", "Payment gateway unavailable, try again later"},
	{gateway.ErrGatewayRejected, http.StatusBadGateway, "GATEWAY_REJECTED", "Payment gateway rejected the request"},
}

// isSignatureError reports whether err came from notification verification.
func isSignatureError(err error) bool {
	return errors.Is(err, signature.ErrMissingSignature) ||
		errors.Is(err, signature.ErrMalformedSignature) ||
		errors.Is(err, signature.ErrInvalidSignature) ||
		errors.Is(err, signature.ErrTimestampOutOfTolerance) ||
		errors.Is(err, signature.ErrMalformedChecksum)
}

// respondServiceError maps a service error to its HTTP response.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		respondErrorDetails(w, r, http.StatusBadRequest, &models.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}, nil)
		return
	}
	if isSignatureError(err) {
		respondError(w, r, http.StatusBadRequest, "INVALID_SIGNATURE", "Signature verification failed", err)
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respondError(w, r, m.status, m.code, m.message, err)
			return
		}
	}
	respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
}
