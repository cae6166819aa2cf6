// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

// Package dedupe keeps short-lived claims in BadgerDB.
//
// Claims guard side effects that must happen at most once even when the
// triggering message is delivered again: receipt fan-out per order and
// processing of a gateway webhook event id. Keys expire after their TTL.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/logging"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("dedupe store closed")

// Store is a set-if-absent key store.
type Store struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
	now    func() time.Time
}

// Open opens the store at cfg.Path, or in memory when the path is empty.
func Open(cfg *config.DedupeConfig) (*Store, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create dedupe directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = true
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.Path == "").Msg("Dedupe store opened")
	return &Store{db: db, now: time.Now}, nil
}

// OpenInMemory opens a memory-only store.
func OpenInMemory() (*Store, error) {
	return Open(&config.DedupeConfig{})
}

// Claim sets key if it is absent and reports whether this call set it.
// A transaction conflict means another caller is claiming the same key; it
// is retried once, after which the other caller is assumed to have won.
func (s *Store) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		claimed := false
		err := s.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get([]byte(key))
			switch {
			case err == nil:
				return nil
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}
			e := badger.NewEntry([]byte(key), []byte(s.now().UTC().Format(time.RFC3339Nano)))
			if ttl > 0 {
				e = e.WithTTL(ttl)
			}
			if err := txn.SetEntry(e); err != nil {
				return err
			}
			claimed = true
			return nil
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("claim %s: %w", key, err)
		}
		return claimed, nil
	}
	return false, nil
}

// Seen reports whether key is currently claimed.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", key, err)
	}
	return found, nil
}

// Release removes a claim so the guarded work can be attempted again.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// RunGC reclaims value log space left by expired claims.
func (s *Store) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.db.Opts().InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("Dedupe store closed")
	return nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// ReceiptKey is the claim key guarding receipt fan-out for an order.
func ReceiptKey(orderID string) string {
	return "receipt:" + orderID
}

// WebhookEventKey is the claim key for a gateway webhook event id.
func WebhookEventKey(gateway, eventID string) string {
	return "webhook:" + gateway + ":" + eventID
}
