// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

// Package auth identifies API callers and decides what they may do.
//
// Middleware.Identify turns an optional bearer token into an Identity on the
// request context. Handlers read it once with IdentityFrom and pass it to
// services explicitly; services never reach into the request themselves.
package auth

import "context"

// Roles.
const (
	RoleDonor = "donor"
	RoleAdmin = "admin"
	// RoleAnonymous is the casbin subject for callers without a token.
	RoleAnonymous = "anonymous"
)

// Principal is an authenticated caller.
type Principal struct {
	UserID string
	Role   string
}

// Identity is who is calling. A nil User means anonymous.
type Identity struct {
	User *Principal
}

// Anonymous is the identity of an unauthenticated caller.
var Anonymous = Identity{}

// Authenticated reports whether the caller presented a valid token.
func (i Identity) Authenticated() bool {
	return i.User != nil
}

// IsAdmin reports whether the caller has the admin role.
func (i Identity) IsAdmin() bool {
	return i.User != nil && i.User.Role == RoleAdmin
}

// UserID returns the caller's user id, or "" when anonymous.
func (i Identity) UserID() string {
	if i.User == nil {
		return ""
	}
	return i.User.UserID
}

// Role returns the caller's role, RoleAnonymous when unauthenticated.
func (i Identity) Role() string {
	if i.User == nil || i.User.Role == "" {
		return RoleAnonymous
	}
	return i.User.Role
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity stored on ctx, Anonymous if none.
func IdentityFrom(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return Anonymous
}
