package facility

import "time"

// Reference data the allocation engine validates against. These entities are
// owned by external admin tooling; this service only ever reads them, and the
// reads happen inside the same transaction as the mutation they guard so an
// entity cannot be deactivated between validation and commit.

// Checkpoint is a physical access-control station. It scopes badge pools and
// access records.
type Checkpoint struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Shift is a scheduled work period staff and accesses may be associated with.
type Shift struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StaffUser is the authenticated actor creating and closing accesses.
// Authentication itself happens upstream (internal/auth); the engine only
// checks existence and the active flag.
type StaffUser struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
