package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-crm/internal/domain"
	"github.com/spec-kit/clinic-crm/internal/observability"
	apperrors "github.com/spec-kit/clinic-crm/pkg/util"
)

const claimsKey = "auth_claims"

// AuthMiddleware enforces bearer-token authentication. Verification is a pure
// function of (token, secret, now); no lookup happens here, so a deleted or
// suspended account keeps a working token until expiry.
type AuthMiddleware struct {
	tokens  *TokenManager
	metrics *observability.Metrics
}

// NewAuthMiddleware constructs middleware. Metrics may be nil.
func NewAuthMiddleware(tokens *TokenManager, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, metrics: metrics}
}

// Handle verifies the Authorization header and stores claims for the handler.
// Every verification failure kind collapses to the same 401 response; the
// specific kind is never echoed to the caller.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("authentication required")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("authentication required")
	}

	claims, err := m.tokens.Verify(parts[1])
	if err != nil {
		m.metrics.RecordAuth(observability.AuthTokenRejected)
		return apperrors.NewUnauthorized("invalid or expired token")
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

// ClaimsFromContext retrieves the verified claims stored by Handle.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}

// RequireRole ensures the verified claims carry one of the allowed roles.
// Matching is exact and case-sensitive; superadmin gets no implicit pass, so
// every call site enumerates it when intended. A role value outside the closed
// set is denied even if the token signature was valid.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !claims.Role.Valid() {
			return apperrors.NewForbidden("not permitted")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[claims.Role]; !exists {
			return apperrors.NewForbidden("not permitted")
		}
		return c.Next()
	}
}
