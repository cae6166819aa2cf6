// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package logging

import "strings"

// Donor contact details and gateway credentials must never reach the log
// stream in clear text. These helpers mask them while keeping enough of the
// value to correlate with support tickets.

// SanitizeToken masks a token, keeping the first and last 4 characters.
//
//	"sk_test_51Habcdef1234" -> "sk_t...1234"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeEmail masks the local part of an email address.
//
//	"asha.rao@example.org" -> "as***@example.org"
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}

// SanitizePhone keeps only the last 4 digits of a phone number.
//
//	"+919876543210" -> "******3210"
func SanitizePhone(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) == 0 {
		return ""
	}
	if len(digits) <= 4 {
		return "***"
	}
	return strings.Repeat("*", 6) + string(digits[len(digits)-4:])
}

// SanitizeValue masks a value based on its key name.
func SanitizeValue(key, value string) string {
	switch strings.ToLower(key) {
	case "checksumhash", "signature", "token", "txntoken", "client_secret",
		"secret", "api_key", "authorization", "password":
		return SanitizeToken(value)
	case "email", "donor_email", "receipt_email":
		return SanitizeEmail(value)
	case "phone", "donor_phone", "mobile_no":
		return SanitizePhone(value)
	}
	return value
}
