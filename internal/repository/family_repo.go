package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kidshield/internal/database"
	"kidshield/internal/models"
)

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily inserts a family. Email uniqueness is left to the store; a
// collision returns ErrDuplicate.
func (r *FamilyRepository) CreateFamily(ctx context.Context, email, passwordHash string) (*models.Family, error) {
	family := &models.Family{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	query := `
		INSERT INTO families (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, family.ID, family.Email, family.PasswordHash, family.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", classify(r.db, err))
	}

	return family, nil
}

// GetFamilyByEmail retrieves a family by its (already normalized) email
func (r *FamilyRepository) GetFamilyByEmail(ctx context.Context, email string) (*models.Family, error) {
	query := `
		SELECT id, email, password_hash, created_at
		FROM families
		WHERE email = ?
	`
	family := &models.Family{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&family.ID,
		&family.Email,
		&family.PasswordHash,
		&family.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	return family, nil
}
