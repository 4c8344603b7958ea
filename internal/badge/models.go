package badge

import (
	"fmt"
	"time"
)

// Badge is a physical visitor pass drawn from a shared pool.
//
// Availability invariant: Status is StatusOccupied if and only if exactly one
// open access record references the badge. Only the allocation engine
// (internal/access) may flip the flag, and it does so inside the same
// transaction as the access mutation.
type Badge struct {
	ID   string `json:"id" db:"id"`
	Type Type   `json:"type" db:"type"`

	Status Status `json:"status" db:"status"`

	// CheckpointID optionally pins the badge to one checkpoint's pool.
	CheckpointID string `json:"checkpoint_id,omitempty" db:"checkpoint_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Type is the closed set of badge series. Keep stable; badge ids embed it.
type Type string

const (
	TypeGIA Type = "GIA" // general visitor badge
	TypeSGN Type = "SGN" // escorted/secure-area badge
)

// ParseType validates a badge type tag at the boundary so raw strings never
// reach storage.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeGIA, TypeSGN:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unknown badge type %q", s)
	}
}

type Status string

const (
	StatusFree     Status = "free"
	StatusOccupied Status = "occupied"
)

// FormatID builds the canonical badge id for a series and number,
// e.g. FormatID(TypeGIA, 1, 3) == "GIA-001".
func FormatID(t Type, n, width int) string {
	return fmt.Sprintf("%s-%0*d", t, width, n)
}
