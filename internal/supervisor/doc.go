// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

/*
Package supervisor provides process supervision for Kindred using suture v4.

Long-running services are organised into three layers so that a crash in
one does not take the others down:

	RootSupervisor ("kindred")
	├── MessagingSupervisor ("messaging-layer")
	│   └── EventRouterService (receipt dispatch)
	├── APISupervisor ("api-layer")
	│   └── HTTPServerService
	└── MaintenanceSupervisor ("maintenance-layer")
	    ├── PeriodicService "pending-sweeper" (if RECONCILE_ENABLED)
	    └── PeriodicService "dedupe-gc"

A failing receipt consumer never stops the API from accepting gateway
callbacks, and the callbacks are what move donations out of PENDING.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddMessagingService(services.NewEventRouterService(router))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped")
	}

# Failure Handling

Each supervisor keeps a decaying failure counter. When it exceeds
FailureThreshold, restarts are delayed by FailureBackoff. Supervisor
events are logged through sutureslog into the zerolog stream.
*/
package supervisor
