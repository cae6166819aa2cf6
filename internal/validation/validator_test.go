// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/kindred/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func validRequest() models.DonationRequest {
	return models.DonationRequest{
		Amount:     "1500.00",
		Currency:   "INR",
		Gateway:    "redirect",
		DonorName:  "Asha Rao",
		DonorEmail: "asha@example.org",
		DonorPhone: "+91 98765 43210",
	}
}

func TestValidateStruct_DonationRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*models.DonationRequest)
		wantField string
	}{
		{"valid", func(*models.DonationRequest) {}, ""},
		{"valid without optional fields", func(r *models.DonationRequest) {
			r.Currency, r.DonorEmail, r.DonorPhone = "", "", ""
		}, ""},
		{"missing amount", func(r *models.DonationRequest) { r.Amount = "" }, "amount"},
		{"zero amount", func(r *models.DonationRequest) { r.Amount = "0" }, "amount"},
		{"negative amount", func(r *models.DonationRequest) { r.Amount = "-5" }, "amount"},
		{"three decimals", func(r *models.DonationRequest) { r.Amount = "10.005" }, "amount"},
		{"not a number", func(r *models.DonationRequest) { r.Amount = "ten" }, "amount"},
		{"trailing zero decimals allowed", func(r *models.DonationRequest) { r.Amount = "10.500" }, ""},
		{"bad gateway", func(r *models.DonationRequest) { r.Gateway = "crypto" }, "gateway"},
		{"bad currency", func(r *models.DonationRequest) { r.Currency = "RUPEE" }, "currency"},
		{"bad email", func(r *models.DonationRequest) { r.DonorEmail = "asha" }, "donor_email"},
		{"short phone", func(r *models.DonationRequest) { r.DonorPhone = "12345" }, "donor_phone"},
		{"letters in phone", func(r *models.DonationRequest) { r.DonorPhone = "98765ABCDE" }, "donor_phone"},
		{"bad interval", func(r *models.DonationRequest) {
			r.Recurring = true
			r.RecurrenceInterval = "weekly"
		}, "recurrence_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := validRequest()
			tt.mutate(&req)

			verr := ValidateStruct(&req)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("unexpected validation error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("expected error on %s", tt.wantField)
			}
			found := false
			for _, fe := range verr.Errors() {
				if fe.Field() == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %s, got %v", tt.wantField, verr)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	req := validRequest()
	req.Amount = "0"
	apiErr := ValidateStruct(&req).ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %s", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "positive amount") {
		t.Errorf("message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "amount" {
		t.Errorf("details = %v", apiErr.Details)
	}

	req.Gateway = ""
	multi := ValidateStruct(&req).ToAPIError()
	if _, ok := multi.Details["fields"]; !ok {
		t.Errorf("expected fields detail for multiple errors, got %v", multi.Details)
	}
}
