package service

import (
	"context"
	"strings"
	"time"

	"kidshield/internal/models"
	"kidshield/internal/repository"
	"kidshield/internal/validation"
)

// CreateChildInput is the body of POST /children
type CreateChildInput struct {
	Name string `json:"name" validate:"required,max=100"`
	YOB  *int   `json:"yob" validate:"omitempty,gte=1900"`
}

// ChildService manages child profiles of a family
type ChildService struct {
	children *repository.ChildRepository
}

// NewChildService creates a new child service
func NewChildService(children *repository.ChildRepository) *ChildService {
	return &ChildService{children: children}
}

// Create adds a child to the family
func (s *ChildService) Create(ctx context.Context, familyID string, in CreateChildInput) (*models.Child, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.YOB != nil && *in.YOB > time.Now().Year() {
		return nil, &validation.Error{Field: "yob", Message: "yob cannot be in the future"}
	}
	return s.children.CreateChild(ctx, familyID, in.Name, in.YOB)
}

// List returns the family's children in creation order
func (s *ChildService) List(ctx context.Context, familyID string) ([]models.Child, error) {
	return s.children.ListChildren(ctx, familyID)
}
