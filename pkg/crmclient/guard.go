package crmclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Decision is the outcome of a navigation check.
type Decision int

const (
	// Allow lets the navigation proceed.
	Allow Decision = iota
	// DenyToLogin routes to the login view.
	DenyToLogin
	// DenyToFallback routes to a "not authorized" landing page.
	DenyToFallback
)

// String renders the decision for diagnostics.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyToLogin:
		return "deny-to-login"
	case DenyToFallback:
		return "deny-to-fallback"
	default:
		return "unknown"
	}
}

// IdentityClient is the slow-path identity confirmation the guard falls back
// to when cached claims are unusable.
type IdentityClient interface {
	Me(ctx context.Context) (*Identity, error)
}

// RouteGuard gates client-side navigation. The fast path decides from cached,
// UNVERIFIED claims without touching the network; the server-side gate remains
// the actual trust boundary, the guard only prevents obviously wrong
// navigations. The slow path asks the server with a bounded timeout and fails
// open on transient errors so a flaky network cannot trap the user.
type RouteGuard struct {
	cache   *TokenCache
	api     IdentityClient
	timeout time.Duration
	logger  *zap.Logger
}

// NewRouteGuard builds a guard. A zero timeout defaults to 8s.
func NewRouteGuard(cache *TokenCache, api IdentityClient, timeout time.Duration, logger *zap.Logger) *RouteGuard {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteGuard{cache: cache, api: api, timeout: timeout, logger: logger}
}

// Authenticate is the hard gate: the caller must hold a session, any session.
// A non-nil error means the navigation was abandoned before a decision; no
// side effects were applied.
func (g *RouteGuard) Authenticate(ctx context.Context) (Decision, error) {
	return g.decide(ctx, nil)
}

// Authorize is the role gate: the cached role must be superadmin or one of
// the allowed roles.
func (g *RouteGuard) Authorize(ctx context.Context, allowed ...string) (Decision, error) {
	return g.decide(ctx, allowed)
}

func (g *RouteGuard) decide(ctx context.Context, allowed []string) (Decision, error) {
	token := g.cache.Token()
	if token == "" {
		return DenyToLogin, nil
	}

	// Fast path: decide from cached claims, no network call.
	if claims := g.cache.Claims(); claims != nil && claims.Role != "" {
		return matchRole(claims.Role, allowed), nil
	}

	// Slow path: legacy or undecodable token, confirm identity server-side.
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	identity, err := g.api.Me(callCtx)
	if err != nil {
		if ctx.Err() != nil {
			// Navigation abandoned mid-check: apply nothing.
			return 0, ctx.Err()
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			g.cache.Clear()
			return DenyToLogin, nil
		}
		g.logger.Warn("identity confirmation failed, allowing navigation",
			zap.Error(err))
		return Allow, nil
	}
	return matchRole(identity.Role, allowed), nil
}

func matchRole(role string, allowed []string) Decision {
	if len(allowed) == 0 || role == "superadmin" {
		return Allow
	}
	for _, a := range allowed {
		if role == a {
			return Allow
		}
	}
	return DenyToFallback
}
