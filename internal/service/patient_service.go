package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/clinic-crm/internal/auth"
	"github.com/spec-kit/clinic-crm/internal/domain"
	"github.com/spec-kit/clinic-crm/internal/repository"
	apperrors "github.com/spec-kit/clinic-crm/pkg/util"
)

// PatientService wraps patient record access with ownership checks. The gate
// only proves who the caller is; whether a patient may touch a given record is
// decided here from the verified claims.
type PatientService struct {
	patients repository.PatientRepository
}

// NewPatientService builds the service.
func NewPatientService(patients repository.PatientRepository) *PatientService {
	return &PatientService{patients: patients}
}

// List returns patient records. Not available to patient-role callers.
func (s *PatientService) List(ctx context.Context, limit, offset int) ([]*domain.Patient, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.patients.List(ctx, limit, offset)
}

// Get returns one patient record. Patient callers may only read their own.
func (s *PatientService) Get(ctx context.Context, claims *auth.Claims, id int64) (*domain.Patient, error) {
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("patient", nil)
		}
		return nil, err
	}
	if err := s.checkOwnership(claims, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// UpdateInput carries mutable patient fields.
type UpdateInput struct {
	Name     string
	Email    string
	Phone    *string
	Birthday *string
	Address  *string
}

// Update modifies a patient record. Patient callers may only modify their own.
func (s *PatientService) Update(ctx context.Context, claims *auth.Claims, id int64, input UpdateInput) (*domain.Patient, error) {
	patient, err := s.Get(ctx, claims, id)
	if err != nil {
		return nil, err
	}

	patient.Name = input.Name
	patient.Email = input.Email
	patient.Phone = input.Phone
	patient.Birthday = input.Birthday
	patient.Address = input.Address

	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// Delete removes a patient record. Role policy restricts this to superadmin at
// the route level; no ownership logic applies.
func (s *PatientService) Delete(ctx context.Context, id int64) error {
	if err := s.patients.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("patient", nil)
		}
		return err
	}
	return nil
}

func (s *PatientService) checkOwnership(claims *auth.Claims, patient *domain.Patient) error {
	if claims.Role != domain.RolePatient {
		return nil
	}
	if patient.UserID != claims.UserID {
		return apperrors.NewForbidden("not permitted")
	}
	return nil
}
