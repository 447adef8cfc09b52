package models

import "time"

// Child represents a child profile belonging to one family
type Child struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"-"`
	Name      string    `json:"name"`
	YOB       *int      `json:"yob"`
	CreatedAt time.Time `json:"-"`
}
