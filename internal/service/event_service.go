package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"kidshield/internal/metrics"
	"kidshield/internal/models"
	"kidshield/internal/repository"
	"kidshield/internal/validation"
)

// ErrChildNotFound is returned when an event names a child outside the family
var ErrChildNotFound = &validation.Error{Field: "child_id", Message: "child not found"}

// RecordEventInput is the body of POST /events
type RecordEventInput struct {
	Platform string          `json:"platform" validate:"required,max=64"`
	Kind     string          `json:"kind" validate:"required,max=64"`
	Payload  json.RawMessage `json:"payload"`
	ChildID  *string         `json:"child_id" validate:"omitempty,uuid"`
}

// EventService records usage telemetry
type EventService struct {
	events   *repository.EventRepository
	children *repository.ChildRepository
}

// NewEventService creates a new event service
func NewEventService(events *repository.EventRepository, children *repository.ChildRepository) *EventService {
	return &EventService{events: events, children: children}
}

// Record appends a usage event for the family. There is no deduplication.
func (s *EventService) Record(ctx context.Context, familyID string, in RecordEventInput) error {
	in.Platform = NormalizePlatform(in.Platform)
	in.Kind = strings.TrimSpace(in.Kind)
	if in.ChildID != nil && strings.TrimSpace(*in.ChildID) == "" {
		in.ChildID = nil
	}
	if err := validation.Struct(in); err != nil {
		return err
	}

	if in.ChildID != nil {
		child, err := s.children.GetChild(ctx, familyID, *in.ChildID)
		if err != nil {
			return err
		}
		if child == nil {
			return ErrChildNotFound
		}
	}

	event := &models.UsageEvent{
		FamilyID: familyID,
		ChildID:  in.ChildID,
		Platform: in.Platform,
		Kind:     in.Kind,
		Payload:  normalizePayload(in.Payload),
	}
	err := s.events.RecordEvent(ctx, event)
	if errors.Is(err, repository.ErrMissingReference) {
		// the child was deleted between the ownership check and the insert
		return ErrChildNotFound
	}
	if err != nil {
		return err
	}

	metrics.UsageEvents.WithLabelValues(metrics.PlatformLabel(event.Platform)).Inc()
	return nil
}

func normalizePayload(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(trimmed)
}
