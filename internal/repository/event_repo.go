package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kidshield/internal/database"
	"kidshield/internal/models"
)

// EventRepository appends usage events. Events are never updated or deleted
// through it.
type EventRepository struct {
	db database.DBTX
}

// NewEventRepository creates a new event repository
func NewEventRepository(db database.DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// RecordEvent inserts an event; ID and CreatedAt are filled in
func (r *EventRepository) RecordEvent(ctx context.Context, event *models.UsageEvent) error {
	event.ID = uuid.NewString()
	event.CreatedAt = time.Now().UTC()

	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	query := `
		INSERT INTO usage_events (id, family_id, child_id, platform, kind, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.FamilyID,
		event.ChildID,
		event.Platform,
		event.Kind,
		string(payload),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", classify(r.db, err))
	}
	return nil
}
