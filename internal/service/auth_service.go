package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/clinic-crm/internal/auth"
	"github.com/spec-kit/clinic-crm/internal/config"
	"github.com/spec-kit/clinic-crm/internal/domain"
	"github.com/spec-kit/clinic-crm/internal/events"
	"github.com/spec-kit/clinic-crm/internal/repository"
	apperrors "github.com/spec-kit/clinic-crm/pkg/util"
)

// LoginThrottle limits failed login attempts per account.
type LoginThrottle interface {
	TooManyAttempts(ctx context.Context, email string) bool
	RecordFailure(ctx context.Context, email string)
	Reset(ctx context.Context, email string)
}

// AuthService coordinates registration, login and credential rotation.
type AuthService struct {
	users      repository.UserRepository
	patients   repository.PatientRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	throttle   LoginThrottle
	dispatcher events.Dispatcher
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborator requirements for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PatientRepo       repository.PatientRepository
	PasswordResetRepo repository.PasswordResetRepository
	Throttle          LoginThrottle
	Dispatcher        events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		patients:   deps.PatientRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLHours),
		throttle:   deps.Throttle,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// RegisterInput carries the registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    *string
	Birthday *string
	Address  *string
}

// Register creates a patient account plus its patient record in one
// transaction and returns a freshly issued token.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.Patient, string, time.Time, error) {
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, nil, "", time.Time{}, err
	}

	verification := uuid.NewString()
	user := &domain.User{
		Name:                   input.Name,
		Email:                  input.Email,
		PasswordHash:           hash,
		Role:                   domain.RolePatient,
		EmailVerificationToken: &verification,
	}
	patient := &domain.Patient{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Birthday: input.Birthday,
		Address:  input.Address,
	}
	if err := s.users.RegisterPatient(ctx, user, patient); err != nil {
		return nil, nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, nil, "", time.Time{}, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Name:              user.Name,
		Email:             user.Email,
		Role:              user.Role,
		VerificationToken: verification,
	})
	return user, patient, token, exp, nil
}

// Login authenticates an account. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	if s.throttle != nil && s.throttle.TooManyAttempts(ctx, email) {
		return nil, "", time.Time{}, apperrors.NewTooManyRequests("too many login attempts")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if s.throttle != nil {
				s.throttle.RecordFailure(ctx, email)
			}
			return nil, "", time.Time{}, auth.ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if s.throttle != nil {
			s.throttle.RecordFailure(ctx, email)
		}
		return nil, "", time.Time{}, auth.ErrInvalidCredentials
	}
	if s.throttle != nil {
		s.throttle.Reset(ctx, email)
	}

	token, exp, err := s.tokenMgr.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Me resolves the identity behind verified claims, with the patient record
// attached for patient accounts.
func (s *AuthService) Me(ctx context.Context, claims *auth.Claims) (*domain.User, *domain.Patient, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("account no longer exists")
		}
		return nil, nil, err
	}

	var patient *domain.Patient
	if user.Role == domain.RolePatient {
		patient, err = s.patients.GetByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, err
		}
	}
	return user, patient, nil
}

// Logout is a no-op: tokens are stateless, discard happens client-side.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

// VerifyEmail consumes an email verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("verification token", nil)
		}
		return err
	}
	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return err
	}
	s.publish(ctx, events.EventEmailVerified, user.ID, events.EmailVerifiedPayload{Email: user.Email})
	return nil
}

// ChangePassword verifies the current password before rotating the hash in a
// single atomic update.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return auth.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}
	s.publish(ctx, events.EventPasswordChanged, user.ID, events.PasswordChangedPayload{Email: user.Email})
	return nil
}

// RequestPasswordReset persists a reset token. Unknown emails return no error
// so the endpoint cannot be used for account enumeration.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventPasswordReset, user.ID, events.PasswordResetPayload{
		Email:      user.Email,
		ResetToken: token.Token,
		ExpiresAt:  token.ExpiresAt,
	})
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("reset token", nil)
		}
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("token expired or used", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, token.UserID, hash); err != nil {
		return err
	}
	return s.resets.MarkUsed(ctx, token.ID)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID int64, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
