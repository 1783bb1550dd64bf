package domain

import "time"

// Patient is the clinical record linked to a patient-role user account.
type Patient struct {
	ID            int64
	UserID        int64
	Name          string
	Email         string
	Phone         *string
	Birthday      *string
	Address       *string
	LoyaltyPoints int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
