// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/kindred/internal/api"
	"github.com/tomtom215/kindred/internal/auth"
	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/database"
	"github.com/tomtom215/kindred/internal/dedupe"
	"github.com/tomtom215/kindred/internal/eventprocessor"
	"github.com/tomtom215/kindred/internal/logging"
	"github.com/tomtom215/kindred/internal/notify"
	"github.com/tomtom215/kindred/internal/payment"
	"github.com/tomtom215/kindred/internal/receipt"
	"github.com/tomtom215/kindred/internal/supervisor"
	"github.com/tomtom215/kindred/internal/supervisor/services"
)

const dedupeGCInterval = 10 * time.Minute

//nolint:gocyclo // Sequential startup wiring
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("events_backend", cfg.Events.Backend).
		Bool("push_gateway", cfg.Gateways.Push.Enabled()).
		Bool("redirect_gateway", cfg.Gateways.Redirect.Enabled()).
		Msg("Starting Kindred")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	claims, err := dedupe.Open(&cfg.Dedupe)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open dedupe store")
	}
	defer func() {
		if err := claims.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing dedupe store")
		}
	}()

	wmLogger := eventprocessor.NewLogger()
	pubsub, err := eventprocessor.NewPubSub(&cfg.Events, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event bus")
	}
	defer func() {
		if err := pubsub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	router, err := eventprocessor.NewRouter(eventprocessor.RouterConfigFrom(&cfg.Events), pubsub.Publisher, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event router")
	}

	// Settlement
	gateways := newGateways(&cfg.Gateways)
	ledger := payment.NewLedger()
	ingestor := payment.NewIngestor(db, ledger, eventprocessor.NewDispatcher(pubsub.Publisher),
		newIngestorOptions(&cfg.Gateways, claims, cfg.Dedupe.WebhookEventTTL))
	initiator := payment.NewInitiator(db, cfg.Gateways.DefaultCurrency, gateways...)
	reconciler := payment.NewReconciler(db, ingestor, cfg.Gateways.RequestTimeout, gateways...)

	authorizer, err := auth.NewAuthorizer()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorizer")
	}
	donations := payment.NewDonations(db, authorizer)

	// Receipts
	generator, err := receipt.NewGenerator(&cfg.Receipt)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize receipt generator")
	}
	notifiers := notify.NewNotifiers(&cfg.Notify)
	eventprocessor.NewReceiptHandler(db, claims, generator, notify.NewFanOut(notifiers...), cfg.Dedupe.ReceiptClaimTTL).
		Register(router, pubsub.Subscriber)

	// HTTP
	var jwtManager *auth.JWTManager
	if cfg.Security.JWTSecret != "" {
		if jwtManager, err = auth.NewJWTManager(&cfg.Security); err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
	} else {
		logging.Warn().Msg("JWT_SECRET not set, every caller is anonymous")
	}

	handler := api.NewHandler(api.Deps{
		Initiator:   initiator,
		Donations:   donations,
		Ingestor:    ingestor,
		Reconciler:  reconciler,
		Receipts:    generator,
		Store:       db,
		Events:      router,
		FrontendURL: cfg.URLs.Frontend,
		Gateways:    gatewayStatus(&cfg.Gateways),
		Notifiers:   notifierStatus(&cfg.Notify),
	})
	httpRouter := api.NewRouter(handler, auth.NewMiddleware(jwtManager),
		api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           httpRouter.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// Supervision
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMessagingService(services.NewEventRouterService(router))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddMaintenanceService(services.NewDedupeGC(claims, dedupeGCInterval))
	if cfg.Reconcile.Enabled {
		tree.AddMaintenanceService(services.NewPendingSweeper(reconciler, cfg.Reconcile))
		logging.Info().
			Dur("interval", cfg.Reconcile.Interval).
			Dur("stale_after", cfg.Reconcile.StaleAfter).
			Msg("Pending sweeper enabled")
	}
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}
	logging.Info().Msg("Kindred stopped")
}
