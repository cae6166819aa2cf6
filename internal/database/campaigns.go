// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomtom215/kindred/internal/models"
)

// CreateCampaign inserts a campaign. Raised starts at the given value,
// normally zero.
func (db *DB) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = db.now()
	}
	c.CreatedAt = dbTime(c.CreatedAt)
	if c.Currency == "" {
		c.Currency = "INR"
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO campaigns (id, title, goal_minor, raised_minor, currency, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, models.ToMinor(c.Goal), models.ToMinor(c.Raised), c.Currency,
		nullTime(c.EndDate), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}
	return nil
}

// GetCampaign loads a campaign by id.
func (db *DB) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		c            models.Campaign
		goal, raised int64
		endDate      sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, goal_minor, raised_minor, currency, end_date, created_at
		FROM campaigns WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &goal, &raised, &c.Currency, &endDate, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", id, err)
	}

	c.Goal = models.FromMinor(goal)
	c.Raised = models.FromMinor(raised)
	c.CreatedAt = c.CreatedAt.UTC()
	if endDate.Valid {
		t := endDate.Time.UTC()
		c.EndDate = &t
	}
	return &c, nil
}

// IncrementRaised adds amountMinor to a campaign's running total in place.
func (db *DB) IncrementRaised(ctx context.Context, campaignID string, amountMinor int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return incrementRaised(ctx, db.conn, campaignID, amountMinor)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func incrementRaised(ctx context.Context, conn execer, campaignID string, amountMinor int64) error {
	if amountMinor <= 0 {
		return fmt.Errorf("increment must be positive, got %d", amountMinor)
	}
	result, err := conn.ExecContext(ctx,
		`UPDATE campaigns SET raised_minor = raised_minor + ? WHERE id = ?`,
		amountMinor, campaignID)
	if err != nil {
		return fmt.Errorf("failed to increment campaign %s: %w", campaignID, err)
	}
	return checkRowsAffected(result, "campaign "+campaignID)
}
