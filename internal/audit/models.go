package audit

import "time"

// Entry is an immutable, append-only audit record.
//
// Invariants:
// - Entries are never updated or deleted.
// - Exactly one entry per successful state-changing operation, zero per
//   failed attempt. Appends therefore happen only inside the transaction
//   that performs the state change, never as a side-channel write.
//
// Storage recommendation (Postgres):
// - Table audit_entries with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Entry struct {
	ID string `json:"id" db:"id"`

	// Category groups entries by the entity family they describe.
	Category Category `json:"category" db:"category"`

	// Action is the business operation recorded. Keep stable; reporting
	// consumers key off these values.
	Action Action `json:"action" db:"action"`

	// Description is a short human-readable summary for internal ops.
	Description string `json:"description,omitempty" db:"description"`

	// ActorID is the authenticated staff user causing the state change.
	ActorID string `json:"actor_id" db:"actor_id"`

	// Back-references for traceability only; non-owning.
	AccessID         string `json:"access_id,omitempty" db:"access_id"`
	BadgeID          string `json:"badge_id,omitempty" db:"badge_id"`
	CheckpointID     string `json:"checkpoint_id,omitempty" db:"checkpoint_id"`
	IdentificationID string `json:"identification_id,omitempty" db:"identification_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Category string

const (
	CategoryAccess Category = "access"
	CategoryBadge  Category = "badge"
)

type Action string

const (
	ActionRegisterEntry    Action = "REGISTER_ENTRY"
	ActionUpdateAccess     Action = "UPDATE_ACCESS"
	ActionRegisterExit     Action = "REGISTER_EXIT"
	ActionCreateBadge      Action = "CREATE_BADGE"
	ActionCreateBadgeRange Action = "CREATE_BADGE_RANGE"
)
