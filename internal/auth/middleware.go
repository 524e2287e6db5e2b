package auth

import (
	"context"
	"net/http"
)

// SessionCookie is the name of the HttpOnly cookie carrying the session JWT.
const SessionCookie = "session"

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the session value.
type contextKey string

const accountIDKey contextKey = "accountID"

// RequireAuth enforces authentication on protected routes.
//
// It reads the session cookie, validates the JWT, and stores the account ID
// in the request context. Missing or invalid sessions get 401 and the chain
// stops.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := extractAccountID(r, tokens)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"not authenticated"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the session account ID when a valid cookie is
// present but never blocks the request.
//
// The OAuth callback routes use this: the same callback is a plain login
// when anonymous and a cross-provider link when a session exists, so the
// handler needs to know about a session without requiring one.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if accountID, err := extractAccountID(r, tokens); err == nil && accountID != "" {
				ctx := context.WithValue(r.Context(), accountIDKey, accountID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccountIDFromContext retrieves the session's account ID from the request
// context. Returns ("", false) for anonymous requests.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}

// extractAccountID reads the session cookie and validates the JWT inside.
func extractAccountID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
