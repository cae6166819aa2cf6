// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

//go:build nats

package eventprocessor

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/kindred/internal/config"
)

const embeddedReadyTimeout = 30 * time.Second

// EmbeddedServer is an in-process NATS JetStream broker for single-instance
// deployments. Completed-donation events survive a restart because the
// stream is stored under EmbeddedStoreDir.
type EmbeddedServer struct {
	server *server.Server
}

// NewEmbeddedServer starts a JetStream-enabled server and waits until it
// accepts connections. A negative port picks a random free port.
func NewEmbeddedServer(cfg *config.EventsConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "kindred-events",
		Host:       "127.0.0.1",
		Port:       cfg.EmbeddedPort,
		JetStream:  true,
		StoreDir:   cfg.EmbeddedStoreDir,
		MaxPayload: 1 << 20,
		NoSigs:     true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(embeddedReadyTimeout) {
		ns.Shutdown()
		return nil, errors.New("embedded NATS server not ready within timeout")
	}
	return &EmbeddedServer{server: ns}, nil
}

// ClientURL returns the URL clients connect to.
func (s *EmbeddedServer) ClientURL() string {
	return s.server.ClientURL()
}

// Shutdown stops the server and waits for it to exit.
func (s *EmbeddedServer) Shutdown() {
	s.server.Shutdown()
	s.server.WaitForShutdown()
}

// IsRunning reports whether the server is running.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}
