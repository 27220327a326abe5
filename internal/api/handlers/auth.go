// HTTP handler for the token endpoint (public — no auth middleware).
// Exchanges a service credential for a Bearer JWT.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	pkgauth "github.com/jsalazar/toolforge/pkg/auth"
)

// AuthHandler issues service tokens against a static credential set.
type AuthHandler struct {
	signingKey  []byte
	tokenTTL    time.Duration
	credentials map[string]string // service_id → bcrypt hash
}

// NewAuthHandler creates an AuthHandler. credentials maps service IDs to
// bcrypt hashes of their secrets.
func NewAuthHandler(signingKey []byte, tokenTTL time.Duration, credentials map[string]string) *AuthHandler {
	return &AuthHandler{
		signingKey:  signingKey,
		tokenTTL:    tokenTTL,
		credentials: credentials,
	}
}

// TokenRequest is the request body for POST /auth/token.
type TokenRequest struct {
	ServiceID string `json:"service_id"`
	Secret    string `json:"secret"`
}

// TokenResponse is returned after a successful credential exchange.
type TokenResponse struct {
	Token     string `json:"token"`
	ServiceID string `json:"service_id"`
	ExpiresIn int64  `json:"expires_in"`
}

// Token handles POST /auth/token.
//
// Response codes:
//   - 200 OK: credential accepted, token issued
//   - 400 Bad Request: invalid JSON or missing fields
//   - 401 Unauthorized: unknown service or wrong secret
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ServiceID == "" || req.Secret == "" {
		writeError(w, http.StatusBadRequest, "service_id and secret are required")
		return
	}

	hash, known := h.credentials[req.ServiceID]
	if !known || !pkgauth.VerifySecret(hash, req.Secret) {
		// Same response for unknown service and wrong secret.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := pkgauth.GenerateToken(h.signingKey, req.ServiceID, h.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	ttl := h.tokenTTL
	if ttl == 0 {
		ttl = pkgauth.DefaultTokenTTL
	}
	writeJSON(w, http.StatusOK, TokenResponse{
		Token:     token,
		ServiceID: req.ServiceID,
		ExpiresIn: int64(ttl.Seconds()),
	})
}
