package crmclient

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TokenClaims is the client-side view of the token payload. It is decoded
// WITHOUT signature verification: the values are a UI convenience for fast
// routing decisions, never an authorization boundary. Every data access still
// goes through the server-side gate.
type TokenClaims struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// TokenCache holds the current session token. Claims are derived from the
// stored token on every call rather than cached separately, so they can never
// diverge from it.
type TokenCache struct {
	store  TokenStore
	logger *zap.Logger
}

// NewTokenCache builds a cache over the given store. A nil logger disables
// diagnostics.
func NewTokenCache(store TokenStore, logger *zap.Logger) *TokenCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenCache{store: store, logger: logger}
}

// Token returns the cached raw token, or empty when none is stored.
func (c *TokenCache) Token() string {
	token, err := c.store.Load()
	if err != nil {
		c.logger.Warn("token load failed", zap.Error(err))
		return ""
	}
	return token
}

// SetToken stores a freshly issued token.
func (c *TokenCache) SetToken(token string) {
	if err := c.store.Save(token); err != nil {
		c.logger.Warn("token save failed", zap.Error(err))
	}
}

// Clear discards the session token. This is the entirety of logout: the
// server keeps no per-token state.
func (c *TokenCache) Clear() {
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("token clear failed", zap.Error(err))
	}
}

// Claims decodes the payload segment of the cached token. Returns nil on any
// malformed input, never an error; the signature is NOT checked.
func (c *TokenCache) Claims() *TokenClaims {
	token := c.Token()
	if token == "" {
		return nil
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		c.logger.Warn("cached token does not have 3 parts", zap.Int("parts", len(parts)))
		return nil
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		c.logger.Warn("cached token payload is not base64url", zap.Error(err))
		return nil
	}

	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		c.logger.Warn("cached token payload is not valid JSON", zap.Error(err))
		return nil
	}
	return &claims
}

// Role returns the role claim, or empty when the token carries none.
func (c *TokenCache) Role() string {
	claims := c.Claims()
	if claims == nil {
		return ""
	}
	return strings.TrimSpace(claims.Role)
}

// IsExpired reports whether the cached token is past its expiry. Missing
// claims or a missing exp count as expired.
func (c *TokenCache) IsExpired() bool {
	claims := c.Claims()
	if claims == nil || claims.ExpiresAt == 0 {
		return true
	}
	return claims.ExpiresAt*1000 < time.Now().UnixMilli()
}
