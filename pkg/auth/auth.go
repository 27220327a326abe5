// Package auth provides bcrypt secret hashing and JWT service tokens.
// This is a leaf package with no domain dependencies. Used by the API
// middleware and the token endpoint.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// BCryptCost is the work factor for bcrypt.
const BCryptCost = 12

// DefaultTokenTTL is the token lifetime when the caller passes zero.
const DefaultTokenTTL = 24 * time.Hour

// Claims are the JWT claims carried by a service token.
type Claims struct {
	ServiceID string `json:"service_id"`
	jwt.RegisteredClaims
}

// HashSecret hashes a service secret with bcrypt for at-rest storage.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), BCryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret verifies a plaintext secret against a bcrypt hash.
// Returns false (not an error) for malformed hashes so responses never leak
// hash format details.
func VerifySecret(hash, secret string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}

// GenerateToken creates a signed HS256 token identifying a service.
// A zero ttl falls back to DefaultTokenTTL.
func GenerateToken(signingKey []byte, serviceID string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	claims := &Claims{
		ServiceID: serviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and extracts its claims.
// Returns an error if the token is invalid, expired, or malformed.
func ParseToken(signingKey []byte, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Pin HMAC-SHA to prevent algorithm substitution attacks.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims or signature")
	}

	return claims, nil
}
