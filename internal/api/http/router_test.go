package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/clinic-crm/internal/api/http/handlers"
	"github.com/spec-kit/clinic-crm/internal/auth"
	"github.com/spec-kit/clinic-crm/internal/config"
	"github.com/spec-kit/clinic-crm/internal/domain"
	"github.com/spec-kit/clinic-crm/internal/observability"
	"github.com/spec-kit/clinic-crm/internal/repository"
	"github.com/spec-kit/clinic-crm/internal/service"
)

type testEnv struct {
	app      *fiber.App
	users    *repository.MemoryUserRepository
	patients *repository.MemoryPatientRepository
	authSvc  *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	patients := repository.NewMemoryPatientRepository()
	users := repository.NewMemoryUserRepository(patients)
	resets := repository.NewMemoryPasswordResetRepository()

	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:               "router-test-secret",
		TokenTTLHours:           1,
		BcryptCost:              bcrypt.MinCost,
		PasswordResetTTLMinutes: 30,
	}}
	authSvc := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:          users,
		PatientRepo:       patients,
		PasswordResetRepo: resets,
	})
	patientSvc := service.NewPatientService(patients)

	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("clinic-crm", "test", nil, nil, metrics),
		Auth:           handlers.NewAuthHandler(authSvc, metrics),
		Patients:       handlers.NewPatientsHandler(patientSvc),
		AuthMiddleware: auth.NewAuthMiddleware(authSvc.TokenManager(), metrics),
	})

	return &testEnv{app: app, users: users, patients: patients, authSvc: authSvc}
}

// seedUser inserts a non-patient account directly, the way operators are
// provisioned outside self-registration.
func (e *testEnv) seedUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("seeded-password", bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{
		Name:         "Seeded " + string(role),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := e.request(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	decode(t, resp, &body)
	require.NotEmpty(t, body.Token)
	return body.Token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, resp, &body)
	return body.Error.Code
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	resp := e.request(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// No database or redis behind this app, readiness must fail.
	resp = e.request(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "admin@clinic.test", domain.RoleAdmin)

	e.login(t, "admin@clinic.test", "seeded-password")
	resp := e.request(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "admin@clinic.test", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.request(t, http.MethodGet, "/health/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap struct {
		Auth map[string]int64 `json:"auth"`
	}
	decode(t, resp, &snap)
	assert.Equal(t, int64(1), snap.Auth["login_succeeded"])
	assert.Equal(t, int64(1), snap.Auth["login_failed"])
}

func TestLoginAndMe(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "admin@clinic.test", domain.RoleAdmin)

	token := e.login(t, "admin@clinic.test", "seeded-password")

	resp := e.request(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me struct {
		User struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	decode(t, resp, &me)
	assert.Equal(t, "admin@clinic.test", me.User.Email)
	assert.Equal(t, "admin", me.User.Role)
}

func TestLoginRejections(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "admin@clinic.test", domain.RoleAdmin)

	// Wrong password and unknown account produce identical responses.
	wrong := e.request(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "admin@clinic.test", "password": "nope"})
	unknown := e.request(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "ghost@clinic.test", "password": "nope"})

	assert.Equal(t, http.StatusUnauthorized, wrong.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknown.StatusCode)
	assert.Equal(t, errorCode(t, wrong), errorCode(t, unknown))

	missing := e.request(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "admin@clinic.test"})
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestEnv(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodGet, "/api/v1/patients"},
		{http.MethodGet, "/api/v1/patients/1"},
		{http.MethodDelete, "/api/v1/patients/1"},
	}
	for _, tc := range cases {
		resp := e.request(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)

		resp = e.request(t, tc.method, tc.path, "garbage-token", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s bad token", tc.method, tc.path)
	}
}

func TestRegisterFlow(t *testing.T) {
	e := newTestEnv(t)

	resp := e.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "New Patient",
		"email":    "patient@clinic.test",
		"password": "long-enough-pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Token string `json:"token"`
		User  struct {
			Role string `json:"role"`
		} `json:"user"`
		Patient *struct {
			UserID int64 `json:"user_id"`
		} `json:"patient"`
	}
	decode(t, resp, &created)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "patient", created.User.Role)
	require.NotNil(t, created.Patient)

	// Weak password is rejected before any account is created.
	resp = e.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Weak",
		"email":    "weak@clinic.test",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Dup",
		"email":    "patient@clinic.test",
		"password": "long-enough-pass",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPatientListPolicy(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "staff@clinic.test", domain.RoleStaff)
	e.seedUser(t, "doctor@clinic.test", domain.RoleDoctor)
	e.seedUser(t, "patient@clinic.test", domain.RolePatient)

	for _, email := range []string{"staff@clinic.test", "doctor@clinic.test"} {
		token := e.login(t, email, "seeded-password")
		resp := e.request(t, http.MethodGet, "/api/v1/patients", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, email)
	}

	token := e.login(t, "patient@clinic.test", "seeded-password")
	resp := e.request(t, http.MethodGet, "/api/v1/patients", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, resp))
}

func TestPatientOwnershipOverHTTP(t *testing.T) {
	e := newTestEnv(t)

	register := func(email string) string {
		resp := e.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"name":     "P " + email,
			"email":    email,
			"password": "long-enough-pass",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var created struct {
			Token   string `json:"token"`
			Patient struct {
				ID int64 `json:"id"`
			} `json:"patient"`
		}
		decode(t, resp, &created)
		return created.Token
	}

	ownerToken := register("owner@clinic.test")
	otherToken := register("other@clinic.test")

	// Owner reads and updates their own record.
	resp := e.request(t, http.MethodGet, "/api/v1/patients/1", ownerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.request(t, http.MethodPut, "/api/v1/patients/1", ownerToken, map[string]string{
		"name":  "Renamed Owner",
		"email": "owner@clinic.test",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A different patient is walled off from it.
	resp = e.request(t, http.MethodGet, "/api/v1/patients/1", otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.request(t, http.MethodPut, "/api/v1/patients/1", otherToken, map[string]string{
		"name":  "Hijacked",
		"email": "owner@clinic.test",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Staff reads any record.
	e.seedUser(t, "staff@clinic.test", domain.RoleStaff)
	staffToken := e.login(t, "staff@clinic.test", "seeded-password")
	resp = e.request(t, http.MethodGet, "/api/v1/patients/2", staffToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPatientDeletePolicy(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "admin@clinic.test", domain.RoleAdmin)
	e.seedUser(t, "root@clinic.test", domain.RoleSuperadmin)

	resp := e.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Target",
		"email":    "target@clinic.test",
		"password": "long-enough-pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Admin holds broad read rights but not delete.
	adminToken := e.login(t, "admin@clinic.test", "seeded-password")
	resp = e.request(t, http.MethodDelete, "/api/v1/patients/1", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	rootToken := e.login(t, "root@clinic.test", "seeded-password")
	resp = e.request(t, http.MethodDelete, "/api/v1/patients/1", rootToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.request(t, http.MethodDelete, "/api/v1/patients/1", rootToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChangePasswordOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "rotate@clinic.test", domain.RoleStaff)
	token := e.login(t, "rotate@clinic.test", "seeded-password")

	resp := e.request(t, http.MethodPost, "/api/v1/auth/password/change", token, map[string]string{
		"current_password": "wrong",
		"new_password":     "brand-new-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.request(t, http.MethodPost, "/api/v1/auth/password/change", token, map[string]string{
		"current_password": "seeded-password",
		"new_password":     "brand-new-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Old password no longer works, new one does.
	resp = e.request(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "rotate@clinic.test", "password": "seeded-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	e.login(t, "rotate@clinic.test", "brand-new-pass")
}

func TestPasswordResetOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "forgot@clinic.test", domain.RoleStaff)

	// Known and unknown emails get the same response.
	for _, email := range []string{"forgot@clinic.test", "nobody@clinic.test"} {
		resp := e.request(t, http.MethodPost, "/api/v1/auth/password/reset/request", "",
			map[string]string{"email": email})
		assert.Equal(t, http.StatusOK, resp.StatusCode, email)
	}

	token, err := e.authSvc.RequestPasswordReset(context.Background(), "forgot@clinic.test")
	require.NoError(t, err)
	require.NotNil(t, token)

	resp := e.request(t, http.MethodPost, "/api/v1/auth/password/reset/confirm", "", map[string]string{
		"token":        token.Token,
		"new_password": "recovered-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	e.login(t, "forgot@clinic.test", "recovered-pass")
}

func TestInvalidPatientID(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "staff@clinic.test", domain.RoleStaff)
	token := e.login(t, "staff@clinic.test", "seeded-password")

	for _, id := range []string{"abc", "-1", "0"} {
		resp := e.request(t, http.MethodGet, fmt.Sprintf("/api/v1/patients/%s", id), token, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, id)
	}
}
