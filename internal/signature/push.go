// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is the maximum age of a signed push event.
const DefaultTolerance = 5 * time.Minute

// PushVerifier verifies push-model webhook signatures.
//
// The header looks like "t=1700000000,v1=5257a8...,v1=...". The signed
// string is "<t>.<raw body>" and each v1 is a hex HMAC-SHA256 of it keyed
// by Secret. Several v1 values appear while a secret is being rolled.
type PushVerifier struct {
	Secret []byte
	// Tolerance bounds |now - t|. Zero disables the timestamp check.
	Tolerance time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewPushVerifier returns a verifier with DefaultTolerance.
func NewPushVerifier(secret string) *PushVerifier {
	return &PushVerifier{Secret: []byte(secret), Tolerance: DefaultTolerance}
}

// Verify checks header against payload. payload must be the body exactly as
// received.
func (v *PushVerifier) Verify(payload []byte, header string) error {
	if strings.TrimSpace(header) == "" {
		return ErrMissingSignature
	}

	timestamp, signatures, err := parsePushHeader(header)
	if err != nil {
		return err
	}

	if v.Tolerance > 0 {
		now := time.Now
		if v.Now != nil {
			now = v.Now
		}
		age := now().Sub(time.Unix(timestamp, 0))
		if age < 0 {
			age = -age
		}
		if age > v.Tolerance {
			return ErrTimestampOutOfTolerance
		}
	}

	expected := computePushMAC(v.Secret, timestamp, payload)
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign returns a header for payload signed at t.
func (v *PushVerifier) Sign(payload []byte, t time.Time) string {
	mac := computePushMAC(v.Secret, t.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", t.Unix(), hex.EncodeToString(mac))
}

func computePushMAC(secret []byte, timestamp int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

func parsePushHeader(header string) (int64, [][]byte, error) {
	var (
		timestamp    int64
		hasTimestamp bool
		signatures   [][]byte
	)

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return 0, nil, ErrMalformedSignature
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, ErrMalformedSignature
			}
			timestamp, hasTimestamp = ts, true
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				// Unparseable candidates cannot match; other v1 values still might.
				continue
			}
			signatures = append(signatures, sig)
		default:
			// v0 and future schemes are ignored.
		}
	}

	if !hasTimestamp {
		return 0, nil, ErrMalformedSignature
	}
	if len(signatures) == 0 {
		return 0, nil, ErrMissingSignature
	}
	return timestamp, signatures, nil
}
