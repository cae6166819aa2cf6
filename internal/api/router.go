// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/kindred/internal/auth"
	"github.com/tomtom215/kindred/internal/middleware"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, chiMW *ChiMiddleware) *Router {
	return &Router{handler: handler, auth: authMiddleware, chiMiddleware: chiMW}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.SecurityHeaders))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	// Gateway callbacks: authenticated by signature, not by token.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitWebhooks())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Post("/api/v1/webhooks/push", router.handler.PushWebhook)
		r.Post("/api/v1/payments/redirect/callback", router.handler.RedirectCallback)
	})

	r.Route("/api/v1/donations", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chiMiddleware(middleware.SecurityHeaders))
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.auth.Identify)

		r.Post("/", router.handler.CreateDonation)

		r.Group(func(r chi.Router) {
			r.Use(router.auth.RequireUser)
			r.Get("/{orderId}", router.handler.GetDonation)
			r.Get("/{orderId}/receipt", router.handler.GetReceipt)
			r.Post("/{orderId}/recurrence/cancel", router.handler.CancelRecurrence)
			r.Post("/{orderId}/reconcile", router.handler.Reconcile)
		})
	})

	return r
}
