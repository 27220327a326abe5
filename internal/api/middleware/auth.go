// Package middleware provides the Bearer-JWT auth middleware for the API.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jsalazar/toolforge/internal/api/ctxkeys"
	pkgauth "github.com/jsalazar/toolforge/pkg/auth"
)

// Auth validates the Bearer JWT token and injects the service identity into
// the request context. Used on all /api/v1/* routes.
//
// Flow:
//  1. Read "Authorization: Bearer <token>" header
//  2. Reject if missing or not Bearer scheme → 401
//  3. Parse + validate JWT → 401 on invalid/expired
//  4. Inject ctxkeys.ServiceID into context
//  5. Call next handler
func Auth(signingKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearerToken(r)
			if tokenString == "" {
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}

			claims, err := pkgauth.ParseToken(signingKey, tokenString)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := ctxkeys.WithValue(r.Context(), ctxkeys.ServiceID, claims.ServiceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
// Returns empty string if the header is missing, uses another scheme, or the
// token is empty.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// writeUnauthorized writes a 401 JSON response, same shape as the handlers'
// writeError.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
