package models

import (
	"encoding/json"
	"time"
)

// UsageEvent is an append-only telemetry record. Payload is stored as given.
type UsageEvent struct {
	ID        string
	FamilyID  string
	ChildID   *string
	Platform  string
	Kind      string
	Payload   json.RawMessage
	CreatedAt time.Time
}
