package dto

import (
	"github.com/spec-kit/clinic-crm/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest payload for new patient accounts.
type RegisterRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone,omitempty"`
	Birthday *string `json:"birthday,omitempty"`
	Address  *string `json:"address,omitempty"`
}

// ChangePasswordRequest payload for credential rotation.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// VerifyEmailRequest payload.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// UserPayload is the identity shape returned by auth endpoints.
type UserPayload struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Role          domain.Role `json:"role"`
	EmailVerified bool        `json:"email_verified"`
}

// NewUserPayload maps a domain user.
func NewUserPayload(user *domain.User) UserPayload {
	return UserPayload{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
	}
}

// LoginResponse is shared by login and register.
type LoginResponse struct {
	Token   string          `json:"token"`
	User    UserPayload     `json:"user"`
	Patient *PatientPayload `json:"patient,omitempty"`
}

// MeResponse is the identity-confirmation shape the client guard relies on.
type MeResponse struct {
	User    UserPayload     `json:"user"`
	Patient *PatientPayload `json:"patient,omitempty"`
}
