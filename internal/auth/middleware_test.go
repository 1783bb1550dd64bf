package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/clinic-crm/internal/domain"
	apperrors "github.com/spec-kit/clinic-crm/pkg/util"
)

func newGateApp(t *testing.T, tm *TokenManager) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}
		domainErr := apperrors.ToDomainError(err)
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
			"error": fiber.Map{"code": domainErr.Code, "message": domainErr.Message},
		})
	})

	m := NewAuthMiddleware(tm, nil)
	app.Get("/staff-only", m.Handle, RequireRole(domain.RoleAdmin, domain.RoleStaff), func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		return c.JSON(fiber.Map{"email": claims.Email})
	})
	app.Get("/any-session", m.Handle, RequireRole(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func gateRequest(t *testing.T, app *fiber.App, path, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestGateRejectsMissingOrBadHeader(t *testing.T) {
	tm := NewTokenManager(testSecret, 1)
	app := newGateApp(t, tm)

	cases := map[string]string{
		"no header":       "",
		"wrong scheme":    "Basic dXNlcjpwYXNz",
		"no token":        "Bearer",
		"garbage token":   "Bearer not-a-jwt",
		"tampered secret": mustIssue(t, NewTokenManager("other-secret", 1), domain.RoleAdmin),
	}
	for name, header := range cases {
		resp := gateRequest(t, app, "/staff-only", header)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
	}
}

func TestGateAllowsPermittedRole(t *testing.T) {
	tm := NewTokenManager(testSecret, 1)
	app := newGateApp(t, tm)

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleStaff} {
		resp := gateRequest(t, app, "/staff-only", mustIssue(t, tm, role))
		assert.Equal(t, http.StatusOK, resp.StatusCode, role)
	}
}

func TestGateDeniesOtherRoles(t *testing.T) {
	tm := NewTokenManager(testSecret, 1)
	app := newGateApp(t, tm)

	// Superadmin gets no implicit pass; the allowed set is exhaustive.
	for _, role := range []domain.Role{domain.RolePatient, domain.RoleDoctor, domain.RoleSuperadmin} {
		resp := gateRequest(t, app, "/staff-only", mustIssue(t, tm, role))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, role)
	}
}

func TestGateDeniesUnknownRoleValue(t *testing.T) {
	tm := NewTokenManager(testSecret, 1)
	app := newGateApp(t, tm)

	// Correctly signed token carrying a role outside the closed set.
	resp := gateRequest(t, app, "/staff-only", mustIssue(t, tm, domain.Role("ghost")))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = gateRequest(t, app, "/any-session", mustIssue(t, tm, domain.Role("ghost")))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGateEmptySetAdmitsAnySession(t *testing.T) {
	tm := NewTokenManager(testSecret, 1)
	app := newGateApp(t, tm)

	resp := gateRequest(t, app, "/any-session", mustIssue(t, tm, domain.RolePatient))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = gateRequest(t, app, "/any-session", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func mustIssue(t *testing.T, tm *TokenManager, role domain.Role) string {
	t.Helper()
	token, _, err := tm.Issue(1, "user@example.com", role)
	require.NoError(t, err)
	return "Bearer " + token
}
