package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// StorySummary is the listing view of a stored story.
type StorySummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Stages      int       `json:"stages"`
	Complete    bool      `json:"complete"`
	GeneratedAt time.Time `json:"generated_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
