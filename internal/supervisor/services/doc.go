// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

/*
Package services provides suture.Service wrappers for Kindred components.

Each wrapper translates a component lifecycle (ListenAndServe, Run/Close,
a periodic task) into suture's context-aware Serve pattern:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Available services:
  - HTTPServerService wraps *http.Server with graceful shutdown
  - EventRouterService runs the watermill router that dispatches receipts
  - PeriodicService runs a task on a fixed interval; NewPendingSweeper and
    NewDedupeGC build the two maintenance jobs

Every wrapper implements fmt.Stringer so suture can name it in log events.
*/
package services
