// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package models

// DonationRequest is the body of POST /api/v1/donations.
// Amount is a decimal string so that no float rounding reaches the ledger.
type DonationRequest struct {
	Amount             string `json:"amount" validate:"required,decimal_amount"`
	Currency           string `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Gateway            string `json:"gateway" validate:"required,oneof=push redirect"`
	DonorName          string `json:"donor_name,omitempty" validate:"max=200"`
	DonorEmail         string `json:"donor_email,omitempty" validate:"omitempty,email,max=254"`
	DonorPhone         string `json:"donor_phone,omitempty" validate:"omitempty,e164_or_local"`
	Anonymous          bool   `json:"anonymous"`
	CampaignID         string `json:"campaign_id,omitempty" validate:"omitempty,max=64"`
	Message            string `json:"message,omitempty" validate:"max=500"`
	Recurring          bool   `json:"recurring"`
	RecurrenceInterval string `json:"recurrence_interval,omitempty" validate:"omitempty,oneof=monthly quarterly yearly"`
}

// DonationStatusResponse is the public view of a donation.
type DonationStatusResponse struct {
	DonationID    string  `json:"donation_id"`
	OrderID       string  `json:"order_id"`
	Status        string  `json:"status"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	TransactionID string  `json:"transaction_id,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	SettledAt     *string `json:"settled_at,omitempty"`
	CampaignID    string  `json:"campaign_id,omitempty"`
	Recurring     bool    `json:"recurring"`
}
