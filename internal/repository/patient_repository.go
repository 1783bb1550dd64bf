package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/clinic-crm/internal/domain"
)

// PatientRepository defines persistence access for patient records.
type PatientRepository interface {
	List(ctx context.Context, limit, offset int) ([]*domain.Patient, error)
	GetByID(ctx context.Context, id int64) (*domain.Patient, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Patient, error)
	Update(ctx context.Context, patient *domain.Patient) error
	Delete(ctx context.Context, id int64) error
}

type patientRepository struct {
	pool *pgxpool.Pool
}

// NewPatientRepository returns a Postgres-backed implementation.
func NewPatientRepository(pool *pgxpool.Pool) PatientRepository {
	return &patientRepository{pool: pool}
}

const patientColumns = `id, user_id, name, email, phone, birthday, address, loyalty_points, created_at, updated_at`

func scanPatient(row pgx.Row) (*domain.Patient, error) {
	var p domain.Patient
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.Birthday,
		&p.Address,
		&p.LoyaltyPoints,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepository) List(ctx context.Context, limit, offset int) ([]*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := make([]*domain.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (r *patientRepository) GetByID(ctx context.Context, id int64) (*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id=$1`
	return scanPatient(r.pool.QueryRow(ctx, query, id))
}

func (r *patientRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE user_id=$1`
	return scanPatient(r.pool.QueryRow(ctx, query, userID))
}

func (r *patientRepository) Update(ctx context.Context, patient *domain.Patient) error {
	const query = `
        UPDATE patients SET name=$1, email=$2, phone=$3, birthday=$4, address=$5, updated_at=NOW()
        WHERE id=$6`

	cmd, err := r.pool.Exec(ctx, query,
		patient.Name,
		patient.Email,
		patient.Phone,
		patient.Birthday,
		patient.Address,
		patient.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
