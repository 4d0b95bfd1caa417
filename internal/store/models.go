package store

import (
	"errors"
	"time"

	"corkboard/api/internal/board"
)

// ErrNotFound is returned when a board or user does not resolve.
var ErrNotFound = errors.New("not found")

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	PasswordHash          string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// BoardSummary is the per-user board listing row: enough to render a board
// picker without loading the full aggregate.
type BoardSummary struct {
	UID       string          `json:"uid"`
	Title     string          `json:"title"`
	OwnerID   string          `json:"ownerId"`
	Privilege board.Privilege `json:"privilege"`
	Columns   int             `json:"columns"`
	Cards     int             `json:"cards"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
