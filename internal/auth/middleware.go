// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package auth

import (
	"net/http"
	"strings"

	"github.com/tomtom215/kindred/internal/logging"
)

// Middleware attaches caller identity to requests.
type Middleware struct {
	jwtManager *JWTManager
}

// NewMiddleware creates auth middleware. A nil manager treats every caller
// as anonymous.
func NewMiddleware(jwtManager *JWTManager) *Middleware {
	return &Middleware{jwtManager: jwtManager}
}

// Identify parses an optional bearer token. Requests without one proceed
// as Anonymous; a token that is present but invalid is rejected.
func (m *Middleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || m.jwtManager == nil {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Anonymous)))
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "Unauthorized: expected bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Rejected bearer token")
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Identity())))
	})
}

// RequireUser rejects anonymous callers.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFrom(r.Context()).Authenticated() {
			http.Error(w, "Unauthorized: authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
