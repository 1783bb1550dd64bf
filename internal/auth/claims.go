package auth

import (
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/clinic-crm/internal/domain"
)

// Claims is the identity fact set carried inside a token. The JSON keys are
// the wire contract shared with the browser client; claims are never mutated
// after issuance.
type Claims struct {
	UserID    int64            `json:"user_id"`
	Email     string           `json:"email"`
	Role      domain.Role      `json:"role"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
}

// GetExpirationTime implements jwt.Claims.
func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.ExpiresAt, nil
}

// GetIssuedAt implements jwt.Claims.
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.IssuedAt, nil
}

// GetNotBefore implements jwt.Claims.
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims.
func (c *Claims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims.
func (c *Claims) GetSubject() (string, error) {
	return "", nil
}

// GetAudience implements jwt.Claims.
func (c *Claims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
