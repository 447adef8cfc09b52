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

// ChildRepository handles database operations for children
type ChildRepository struct {
	db database.DBTX
}

// NewChildRepository creates a new child repository
func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

// CreateChild creates a new child profile
func (r *ChildRepository) CreateChild(ctx context.Context, familyID, name string, yob *int) (*models.Child, error) {
	child := &models.Child{
		ID:        uuid.NewString(),
		FamilyID:  familyID,
		Name:      name,
		YOB:       yob,
		CreatedAt: time.Now().UTC(),
	}

	query := "INSERT INTO children (id, family_id, name, yob, created_at) VALUES (?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, child.ID, child.FamilyID, child.Name, nullableInt(yob), child.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", classify(r.db, err))
	}

	return child, nil
}

// GetChild retrieves a child only if it belongs to the family
func (r *ChildRepository) GetChild(ctx context.Context, familyID, childID string) (*models.Child, error) {
	query := "SELECT id, family_id, name, yob, created_at FROM children WHERE id = ? AND family_id = ?"
	child, err := scanChild(r.db.QueryRowContext(ctx, query, childID, familyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return child, nil
}

// ListChildren retrieves all children of a family, oldest first
func (r *ChildRepository) ListChildren(ctx context.Context, familyID string) ([]models.Child, error) {
	query := `
		SELECT id, family_id, name, yob, created_at
		FROM children
		WHERE family_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	children := []models.Child{}
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *child)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate children: %w", err)
	}

	return children, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChild(row rowScanner) (*models.Child, error) {
	var (
		child models.Child
		yob   sql.NullInt64
	)
	if err := row.Scan(&child.ID, &child.FamilyID, &child.Name, &yob, &child.CreatedAt); err != nil {
		return nil, err
	}
	if yob.Valid {
		v := int(yob.Int64)
		child.YOB = &v
	}
	return &child, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
