package auth

import "errors"

// Verification failure kinds. Handlers must collapse all of them to a generic
// 401; the distinction exists for server-side diagnostics and tests only.
var (
	// ErrMalformedToken marks a structurally invalid token: wrong part count,
	// bad base64url or JSON.
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidSignature marks a tampered token or one signed with a
	// different secret.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired marks a structurally valid, correctly signed token whose
	// expiry has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
