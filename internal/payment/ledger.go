// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package payment

import (
	"github.com/tomtom215/kindred/internal/database"
	"github.com/tomtom215/kindred/internal/metrics"
	"github.com/tomtom215/kindred/internal/models"
)

// Ledger reflects completed donations into their campaign's total.
//
// The increment is not a separate write: Credit builds it and the store
// commits it in the transaction that moves the donation to COMPLETED. A
// crash between the two cannot under-count a campaign.
type Ledger struct{}

// NewLedger creates a Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Credit returns the campaign increment for d, or nil when d belongs to
// no campaign.
func (l *Ledger) Credit(d *models.Donation) *database.Credit {
	if d.CampaignID == "" {
		return nil
	}
	return &database.Credit{CampaignID: d.CampaignID, AmountMinor: d.AmountMinor()}
}

// Record counts the result of a completion that carried c.
func (l *Ledger) Record(c *database.Credit, err error) {
	if c == nil {
		return
	}
	if err != nil {
		metrics.LedgerIncrementErrorsTotal.Inc()
		return
	}
	metrics.LedgerIncrementsTotal.Inc()
}
