// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

// Package signature authenticates inbound gateway messages.
//
// Both verifiers are pure: they hold a secret, perform no I/O and must run
// before any donation is looked up or changed.
//
//   - PushVerifier checks an HMAC-SHA256 over the exact raw webhook body.
//   - RedirectVerifier checks the checksum a redirect-model gateway computes
//     over its canonicalised callback parameters.
package signature

import "errors"

var (
	// ErrMissingSignature means the request carried no signature at all.
	ErrMissingSignature = errors.New("missing signature")
	// ErrMalformedSignature means the signature header could not be parsed.
	ErrMalformedSignature = errors.New("malformed signature header")
	// ErrInvalidSignature means no supplied signature matched.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrTimestampOutOfTolerance means the signed timestamp is too old or too far ahead.
	ErrTimestampOutOfTolerance = errors.New("signature timestamp outside tolerance")
	// ErrMalformedChecksum means a redirect checksum could not be decoded.
	ErrMalformedChecksum = errors.New("malformed checksum")
)
