// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/kindred/internal/models"
)

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady reports whether the store and event router are usable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.deps.Store != nil && h.deps.Store.Ping(r.Context()) == nil
	routerRunning := h.deps.Events != nil && h.deps.Events.IsRunning()

	status := models.HealthStatus{
		Status:            "healthy",
		DatabaseConnected: dbConnected,
		EventRouter:       routerRunning,
		Gateways:          h.deps.Gateways,
		Notifiers:         h.deps.Notifiers,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	code := http.StatusOK
	if !dbConnected || !routerRunning {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, r, code, status)
}
