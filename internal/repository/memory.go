package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/clinic-crm/internal/domain"
)

// In-memory repository implementations. They back tests and local development
// without a database and mirror the Postgres implementations' semantics,
// including pgx.ErrNoRows on missing rows.

// MemoryPatientRepository is a map-backed PatientRepository.
type MemoryPatientRepository struct {
	mu       sync.Mutex
	nextID   int64
	patients map[int64]*domain.Patient
}

// NewMemoryPatientRepository builds an empty in-memory patient repository.
func NewMemoryPatientRepository() *MemoryPatientRepository {
	return &MemoryPatientRepository{nextID: 1, patients: map[int64]*domain.Patient{}}
}

func (r *MemoryPatientRepository) List(_ context.Context, limit, offset int) ([]*domain.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Patient, 0, len(r.patients))
	for id := int64(1); id < r.nextID; id++ {
		if patient, ok := r.patients[id]; ok {
			clone := *patient
			out = append(out, &clone)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryPatientRepository) GetByID(_ context.Context, id int64) (*domain.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	patient, ok := r.patients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *patient
	return &clone, nil
}

func (r *MemoryPatientRepository) GetByUserID(_ context.Context, userID int64) (*domain.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, patient := range r.patients {
		if patient.UserID == userID {
			clone := *patient
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryPatientRepository) Update(_ context.Context, patient *domain.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[patient.ID]; !ok {
		return pgx.ErrNoRows
	}
	patient.UpdatedAt = time.Now()
	clone := *patient
	r.patients[patient.ID] = &clone
	return nil
}

func (r *MemoryPatientRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.patients, id)
	return nil
}

func (r *MemoryPatientRepository) insert(patient *domain.Patient) {
	patient.ID = r.nextID
	r.nextID++
	now := time.Now()
	patient.CreatedAt = now
	patient.UpdatedAt = now
	clone := *patient
	r.patients[patient.ID] = &clone
}

// MemoryUserRepository is a map-backed UserRepository. RegisterPatient writes
// into the linked patient repository the way the Postgres version writes both
// tables in one transaction.
type MemoryUserRepository struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*domain.User
	patients *MemoryPatientRepository
}

// NewMemoryUserRepository builds an empty in-memory user repository linked to
// a patient repository.
func NewMemoryUserRepository(patients *MemoryPatientRepository) *MemoryUserRepository {
	return &MemoryUserRepository{nextID: 1, users: map[int64]*domain.User{}, patients: patients}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = r.nextID
	r.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *MemoryUserRepository) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) MarkEmailVerified(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.EmailVerified = true
	user.EmailVerificationToken = nil
	user.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryUserRepository) GetByVerificationToken(_ context.Context, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.EmailVerificationToken != nil && *user.EmailVerificationToken == token {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryUserRepository) RegisterPatient(ctx context.Context, user *domain.User, patient *domain.Patient) error {
	if err := r.Create(ctx, user); err != nil {
		return err
	}

	r.patients.mu.Lock()
	defer r.patients.mu.Unlock()
	patient.UserID = user.ID
	r.patients.insert(patient)
	return nil
}

// Remove drops a user row directly. Only tests exercise this.
func (r *MemoryUserRepository) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

// MemoryPasswordResetRepository is a map-backed PasswordResetRepository.
type MemoryPasswordResetRepository struct {
	mu     sync.Mutex
	nextID int64
	tokens map[string]*PasswordResetToken
}

// NewMemoryPasswordResetRepository builds an empty in-memory reset repository.
func NewMemoryPasswordResetRepository() *MemoryPasswordResetRepository {
	return &MemoryPasswordResetRepository{nextID: 1, tokens: map[string]*PasswordResetToken{}}
}

func (r *MemoryPasswordResetRepository) Create(_ context.Context, token *PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token.ID = r.nextID
	r.nextID++
	token.CreatedAt = time.Now()
	clone := *token
	r.tokens[token.Token] = &clone
	return nil
}

func (r *MemoryPasswordResetRepository) GetByToken(_ context.Context, tokenStr string) (*PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *token
	return &clone, nil
}

func (r *MemoryPasswordResetRepository) MarkUsed(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.tokens {
		if token.ID == id {
			now := time.Now()
			token.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}
