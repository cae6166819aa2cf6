// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

// Package database persists donations and campaigns in DuckDB.
//
// Two operations carry the pipeline's correctness guarantees and are each a
// single conditional statement, never a read followed by a write:
//
//   - CompleteIfPending / FailIfPending: UPDATE ... WHERE status = 'PENDING'.
//     RowsAffected tells the caller whether it won the transition.
//   - IncrementRaised: UPDATE campaigns SET raised_minor = raised_minor + ?.
//
// A completion carrying a Credit runs both in one transaction, so a
// campaign counts a donation exactly when the donation is COMPLETED.
//
// Amounts are stored as BIGINT minor units. The pool is limited to one
// connection: DuckDB rejects concurrent writers to the same row with a
// transaction conflict, and serialising statements here keeps both
// operations atomic without retry loops in callers.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/kindred/internal/config"
	"github.com/tomtom215/kindred/internal/logging"
)

var (
	// ErrNotFound is returned when a donation or campaign does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateOrderID is returned when an order id is already taken.
	ErrDuplicateOrderID = errors.New("duplicate order id")
)

// DB wraps the DuckDB connection.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
	now  func() time.Time
}

// New opens the database and creates the schema. An empty cfg.Path opens
// an in-memory database.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg.Path != "" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn, cfg: cfg, now: time.Now}

	if err := db.configure(); err != nil {
		closeQuietly(conn)
		return nil, err
	}
	if err := db.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	location := cfg.Path
	if location == "" {
		location = ":memory:"
	}
	logging.Info().Str("path", location).Msg("Database initialized")
	return db, nil
}

func (db *DB) configure() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	threads := db.cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if _, err := db.conn.ExecContext(ctx, fmt.Sprintf("SET threads = %d", threads)); err != nil {
		return fmt.Errorf("failed to set threads: %w", err)
	}
	if db.cfg.MaxMemory != "" {
		if _, err := db.conn.ExecContext(ctx, "SET max_memory = '"+strings.ReplaceAll(db.cfg.MaxMemory, "'", "")+"'"); err != nil {
			return fmt.Errorf("failed to set max_memory: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// ensureContext applies a 30s deadline when ctx has none.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}

// dbTime normalises a timestamp to the precision DuckDB stores.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
