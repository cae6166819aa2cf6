// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package models

import "time"

// APIResponse is the envelope of every JSON API response.
//
// Success:
//
//	{
//	  "status": "success",
//	  "data": {...},
//	  "metadata": {"timestamp": "2026-01-01T12:00:00Z", "request_id": "…"}
//	}
//
// Error:
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "error": {"code": "CAMPAIGN_ENDED", "message": "Campaign has ended"},
//	  "metadata": {"timestamp": "2026-01-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is a machine-readable code plus a human message.
//
// Codes used by the API: VALIDATION_ERROR, INVALID_AMOUNT, CAMPAIGN_NOT_FOUND,
// CAMPAIGN_ENDED, CURRENCY_MISMATCH, UNSUPPORTED_GATEWAY, NOT_FOUND,
// FORBIDDEN, RECEIPT_NOT_AVAILABLE, NOT_RECURRING, GATEWAY_UNAVAILABLE,
// GATEWAY_REJECTED, INVALID_SIGNATURE, INVALID_PAYLOAD, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by the readiness probe.
type HealthStatus struct {
	Status            string            `json:"status"`
	DatabaseConnected bool              `json:"database_connected"`
	EventRouter       bool              `json:"event_router_running"`
	Gateways          map[string]bool   `json:"gateways"`
	Notifiers         map[string]string `json:"notifiers"`
	Uptime            float64           `json:"uptime_seconds"`
}
