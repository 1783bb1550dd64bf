package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-crm/internal/api/dto"
	"github.com/spec-kit/clinic-crm/internal/auth"
	"github.com/spec-kit/clinic-crm/internal/observability"
	"github.com/spec-kit/clinic-crm/internal/service"
	apperrors "github.com/spec-kit/clinic-crm/pkg/util"
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	metrics *observability.Metrics
}

// NewAuthHandler constructs handler. Metrics may be nil.
func NewAuthHandler(authService *service.AuthService, metrics *observability.Metrics) *AuthHandler {
	return &AuthHandler{auth: authService, metrics: metrics}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	user, token, _, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.metrics.RecordAuth(observability.AuthLoginFailed)
			return apperrors.NewUnauthorized("invalid credentials")
		}
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.HTTPStatus == http.StatusTooManyRequests {
			h.metrics.RecordAuth(observability.AuthLoginThrottled)
		}
		return err
	}
	h.metrics.RecordAuth(observability.AuthLoginSucceeded)

	return c.JSON(dto.LoginResponse{Token: token, User: dto.NewUserPayload(user)})
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "name, email, password required")
	}
	if len(req.Password) < 8 {
		return fiber.NewError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	user, patient, token, _, err := h.auth.Register(c.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Birthday: req.Birthday,
		Address:  req.Address,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.LoginResponse{
		Token:   token,
		User:    dto.NewUserPayload(user),
		Patient: dto.NewPatientPayload(patient),
	})
}

// Me handles GET /auth/me, the identity-confirmation endpoint the client
// guard's slow path depends on.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	user, patient, err := h.auth.Me(c.Context(), claims)
	if err != nil {
		return err
	}

	return c.JSON(dto.MeResponse{
		User:    dto.NewUserPayload(user),
		Patient: dto.NewPatientPayload(patient),
	})
}

// Logout handles POST /auth/logout. Tokens are stateless so there is nothing
// to clear server-side; the client discards its copy.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	_ = h.auth.Logout(c.Context(), "")
	return c.JSON(fiber.Map{"message": "logged out"})
}

// VerifyEmail handles POST /auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" {
		return fiber.NewError(http.StatusBadRequest, "token required")
	}
	if err := h.auth.VerifyEmail(c.Context(), req.Token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "email verified"})
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "current and new password required")
	}
	if len(req.NewPassword) < 8 {
		return fiber.NewError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	if err := h.auth.ChangePassword(c.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return err
	}
	return c.JSON(fiber.Map{"message": "password changed"})
}

// RequestPasswordReset handles POST /auth/password/reset/request. The response
// is identical whether or not the email exists.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email required")
	}
	if _, err := h.auth.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "if the account exists, a reset email was sent"})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "token and new password required")
	}
	if err := h.auth.ConfirmPasswordReset(c.Context(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "password reset"})
}
