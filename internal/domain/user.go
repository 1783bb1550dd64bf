package domain

import "time"

// User is an account that can authenticate against the CRM. Every patient owns
// a user row; staff-side accounts (superadmin, admin, doctor, staff) exist only
// here.
type User struct {
	ID                     int64
	Name                   string
	Email                  string
	PasswordHash           string
	Role                   Role
	EmailVerified          bool
	EmailVerificationToken *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
