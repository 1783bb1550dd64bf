package dto

import (
	"time"

	"github.com/spec-kit/clinic-crm/internal/domain"
)

// PatientPayload is the wire shape of a patient record.
type PatientPayload struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         *string   `json:"phone,omitempty"`
	Birthday      *string   `json:"birthday,omitempty"`
	Address       *string   `json:"address,omitempty"`
	LoyaltyPoints int       `json:"loyalty_points"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewPatientPayload maps a domain patient.
func NewPatientPayload(p *domain.Patient) *PatientPayload {
	if p == nil {
		return nil
	}
	return &PatientPayload{
		ID:            p.ID,
		UserID:        p.UserID,
		Name:          p.Name,
		Email:         p.Email,
		Phone:         p.Phone,
		Birthday:      p.Birthday,
		Address:       p.Address,
		LoyaltyPoints: p.LoyaltyPoints,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// PatientUpdateRequest payload for patient updates.
type PatientUpdateRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone,omitempty"`
	Birthday *string `json:"birthday,omitempty"`
	Address  *string `json:"address,omitempty"`
}
