package events

import (
	"time"

	"github.com/spec-kit/clinic-crm/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventEmailVerified   EventType = "email_verified"
	EventPasswordChanged EventType = "password_changed"
	EventPasswordReset   EventType = "password_reset_requested"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    int64       `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Name              string      `json:"name"`
	Email             string      `json:"email"`
	Role              domain.Role `json:"role"`
	VerificationToken string      `json:"verification_token"`
}

// EmailVerifiedPayload payload.
type EmailVerifiedPayload struct {
	Email string `json:"email"`
}

// PasswordChangedPayload payload.
type PasswordChangedPayload struct {
	Email string `json:"email"`
}

// PasswordResetPayload payload.
type PasswordResetPayload struct {
	Email      string    `json:"email"`
	ResetToken string    `json:"reset_token"`
	ExpiresAt  time.Time `json:"expires_at"`
}
