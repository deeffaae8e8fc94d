// ABOUTME: HTTP middleware gating mutating routes behind the credential chain
// ABOUTME: Writes JSON 401 responses and stores the identity in the request context

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const identityContextKey contextKey = "auth_identity"

// WithIdentity returns a context carrying the authenticated identity
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext extracts the authenticated identity from the
// context, or nil if the request did not pass through Require.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey).(*Identity)
	return identity
}

// Require wraps a handler so it only runs for authenticated requests.
// Token failures surface as "Invalid token"; everything else is the
// generic "Unauthorized" so callers learn nothing about which scheme ran.
func Require(chain *Chain) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity, err := chain.Authenticate(r)
			if err != nil {
				message := "Unauthorized"
				if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrExpiredToken) || errors.Is(err, ErrMissingClaim) {
					message = "Invalid token"
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": message})
				return
			}

			next(w, r.WithContext(WithIdentity(r.Context(), identity)))
		}
	}
}
