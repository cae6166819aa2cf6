// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package database

import (
	"context"
	"fmt"
	"time"
)

// Only id and order_id are indexed. DuckDB implements an UPDATE touching an
// indexed column as delete+insert, so status and raised_minor stay unindexed.
var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS campaigns (
		id VARCHAR PRIMARY KEY,
		title VARCHAR NOT NULL,
		goal_minor BIGINT NOT NULL DEFAULT 0,
		raised_minor BIGINT NOT NULL DEFAULT 0,
		currency VARCHAR NOT NULL DEFAULT 'INR',
		end_date TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS donations (
		id VARCHAR PRIMARY KEY,
		order_id VARCHAR NOT NULL UNIQUE,
		gateway VARCHAR NOT NULL,
		gateway_ref VARCHAR,
		transaction_id VARCHAR,
		amount_minor BIGINT NOT NULL,
		currency VARCHAR NOT NULL,
		status VARCHAR NOT NULL,
		user_id VARCHAR,
		donor_name VARCHAR,
		donor_email VARCHAR,
		donor_phone VARCHAR,
		anonymous BOOLEAN NOT NULL DEFAULT false,
		campaign_id VARCHAR,
		message VARCHAR,
		payment_method VARCHAR,
		raw_response BLOB,
		settled_at TIMESTAMP,
		recurring BOOLEAN NOT NULL DEFAULT false,
		recurrence_interval VARCHAR,
		recurrence_cancelled_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
}

func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, q := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}
