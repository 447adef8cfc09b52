package models

import "time"

// Family is the authenticated account that owns children, rules and usage events
type Family struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
