// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Campaign is a fundraising target. Raised only grows, by the amount of
// each donation that reaches COMPLETED, counted once.
type Campaign struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Goal      decimal.Decimal `json:"goal"`
	Raised    decimal.Decimal `json:"raised"`
	Currency  string          `json:"currency"`
	EndDate   *time.Time      `json:"end_date,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Ended reports whether the campaign's end date lies before now.
// Campaigns without an end date never end.
func (c *Campaign) Ended(now time.Time) bool {
	return c.EndDate != nil && c.EndDate.Before(now)
}
