// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

/*
Package api exposes Kindred over HTTP using the chi router.

Routes:

	POST /api/v1/donations                              initiate (optional bearer token)
	GET  /api/v1/donations/{orderId}                    status (owner or admin)
	GET  /api/v1/donations/{orderId}/receipt            regenerate PDF (owner or admin, COMPLETED only)
	POST /api/v1/donations/{orderId}/recurrence/cancel  owner cancels a recurring gift
	POST /api/v1/donations/{orderId}/reconcile          admin status check against the gateway
	POST /api/v1/webhooks/push                          push-model gateway webhook
	POST /api/v1/payments/redirect/callback             redirect-model gateway callback (303)
	GET  /api/v1/health/live, /api/v1/health/ready      probes
	GET  /metrics                                       prometheus

JSON responses use the models.APIResponse envelope, except the push
webhook which answers {"received": true} as gateways expect. Errors are
mapped to status codes in one place, errors.go.

Gateway callbacks get their own, much higher rate limit than public routes
because gateways retry in bursts and a 429 there only delays settlement.
*/
package api
