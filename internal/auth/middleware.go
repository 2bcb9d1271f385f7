package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the identity value.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth enforces authentication on protected routes.
//
// It reads the JWT from the Authorization header (Bearer scheme) or the
// "token" HttpOnly cookie, validates it, and stores the Identity in the
// request context. Missing or invalid tokens end the request with 401
// before any handler — and therefore before any group lookup — runs.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := extractIdentity(r, tokens)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin builds on RequireAuth: the request must carry a valid token
// AND the Administrator claim. Authenticated non-admins get 403, not 401 —
// we know who they are, they just may not be here.
func RequireAdmin(tokens *TokenService) func(http.Handler) http.Handler {
	requireAuth := RequireAuth(tokens)
	return func(next http.Handler) http.Handler {
		return requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := IdentityFromContext(r.Context())
			if !id.IsAdmin {
				writeAuthError(w, http.StatusForbidden, "forbidden", "administrator role required")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// IdentityFromContext retrieves the authenticated identity from the request
// context. The second return is false for anonymous requests, which can only
// happen on routes that skipped RequireAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// writeAuthError sends the same error shape as the handler layer. The
// handlers' helper lives downstream of this package, so the encoding is
// repeated here rather than imported.
func writeAuthError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errorType,
		"message": message,
	})
}

// extractIdentity reads the token from the Authorization header or the
// cookie and validates it.
func extractIdentity(r *http.Request, tokens *TokenService) (Identity, error) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return tokens.Validate(strings.TrimPrefix(h, "Bearer "))
	}

	cookie, err := r.Cookie("token")
	if err != nil {
		return Identity{}, err
	}
	return tokens.Validate(cookie.Value)
}
