// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

/*
Package models defines the data structures shared across Kindred.

Key Components:

  - Donation: one gift and its PENDING -> COMPLETED | FAILED lifecycle
  - Campaign: a fundraising target with a running raised total in minor units
  - Settlement: a gateway-neutral settlement notification
  - PushEvent, RedirectCallback: the two gateway wire formats
  - DonationRequest, DonationStatusResponse: API request and response bodies
  - APIResponse: standard response envelope

Money is carried as decimal.Decimal and converted to int64 minor units
(paise, cents) wherever it is summed. Every supported currency has two
minor digits.
*/
package models
