// ABOUTME: Record types and the Store interface for keepsake persistence
// ABOUTME: Defines CoupleProfile, Memory, Perspective and storage errors

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// CoupleProfile is the singleton couple_data row. Exactly one row exists
// once the store has been opened; it is updated in place and never deleted.
type CoupleProfile struct {
	ID          int64
	StartDate   string
	HomeMessage string
	IntroText   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Memory is a titled entry with an optional photo attachment.
// The attachment file is owned by the memory that references it and is
// removed (best effort) when the memory is deleted.
type Memory struct {
	ID            int64
	Title         string
	Description   string
	PhotoFilename string // empty when no photo is attached
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Perspective is a numbered personal reflection. PerspectiveNumber is the
// business key; at most one row exists per number.
type Perspective struct {
	ID                int64
	PerspectiveNumber int
	Content           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Store defines persistence for the couple profile, memories, and perspectives
type Store interface {
	// Couple profile (singleton row, id = 1)
	GetCoupleProfile(ctx context.Context) (*CoupleProfile, error)
	SetStartDate(ctx context.Context, startDate string) error
	SetHomeMessage(ctx context.Context, homeMessage string) error
	SetIntroText(ctx context.Context, introText string) error

	// Memories
	ListMemories(ctx context.Context) ([]*Memory, error)
	GetMemory(ctx context.Context, id int64) (*Memory, error)
	CreateMemory(ctx context.Context, memory *Memory) error
	// UpdateMemory overwrites title and description; a nil photoFilename
	// keeps the stored filename. Updating an unknown id affects zero rows
	// and is not an error.
	UpdateMemory(ctx context.Context, id int64, title, description string, photoFilename *string) error
	// DeleteMemory is idempotent; deleting an unknown id is not an error.
	DeleteMemory(ctx context.Context, id int64) error

	// Perspectives
	ListPerspectives(ctx context.Context) ([]*Perspective, error)
	GetPerspective(ctx context.Context, number int) (*Perspective, error)
	UpsertPerspective(ctx context.Context, number int, content string) error
	// UpdatePerspective affects zero rows for an unknown number and is
	// not an error; it never creates a row.
	UpdatePerspective(ctx context.Context, number int, content string) error

	Close() error
}
