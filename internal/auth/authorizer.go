// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package auth

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Donation actions.
const (
	ActionCreate           = "create"
	ActionRead             = "read"
	ActionReadReceipt      = "read-receipt"
	ActionCancelRecurrence = "cancel-recurrence"
	ActionReconcile        = "reconcile"
)

// Donation objects. Ownership is resolved by the caller, casbin decides
// what each role may do with it.
const (
	ObjectNewDonation   = "donation:new"
	ObjectOwnDonation   = "donation:own"
	ObjectOtherDonation = "donation:other"
)

// Authorizer evaluates the embedded RBAC policy.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewAuthorizer loads the embedded model and policy.
func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadEmbeddedPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}
	return &Authorizer{enforcer: enforcer}, nil
}

func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Allowed reports whether id may perform action on object.
func (a *Authorizer) Allowed(id Identity, object, action string) (bool, error) {
	ok, err := a.enforcer.Enforce(id.Role(), object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return ok, nil
}

// CanAccessDonation reports whether id may perform action on a donation
// owned by ownerUserID. Donations without an owner belong to nobody, so
// only admins can act on them.
func (a *Authorizer) CanAccessDonation(id Identity, ownerUserID, action string) (bool, error) {
	object := ObjectOtherDonation
	if ownerUserID != "" && id.UserID() == ownerUserID {
		object = ObjectOwnDonation
	}
	return a.Allowed(id, object, action)
}
