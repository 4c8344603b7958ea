package access

import "time"

// Access represents one visitor's presence, from check-in to check-out.
//
// Lifecycle invariants:
// - ExitTime is monotonic: once set it is never cleared or moved earlier.
// - If BadgeID is non-empty, the referenced badge is occupied and no other
//   open access references it.
// - Closed accesses are terminal; only read operations apply.
type Access struct {
	ID string `json:"id" db:"id"`

	// Visitor identity. Motive is the only required field.
	VisitorName string `json:"visitor_name,omitempty" db:"visitor_name"`
	Company     string `json:"company,omitempty" db:"company"`
	Phone       string `json:"phone,omitempty" db:"phone"`
	Motive      string `json:"motive" db:"motive"`

	// CreatorID is the staff user who performed the check-in.
	CreatorID string `json:"creator_id" db:"creator_id"`

	// Non-owning references; empty string means unset.
	BadgeID          string `json:"badge_id,omitempty" db:"badge_id"`
	IdentificationID string `json:"identification_id,omitempty" db:"identification_id"`
	ShiftID          string `json:"shift_id,omitempty" db:"shift_id"`
	CheckpointID     string `json:"checkpoint_id,omitempty" db:"checkpoint_id"`

	// Companion/escort fields are required together or not at all.
	CompanionName     string `json:"companion_name,omitempty" db:"companion_name"`
	CompanionLocation string `json:"companion_location,omitempty" db:"companion_location"`

	// Group visits carry a head count; individual visits leave both zeroed.
	IsGroup   bool `json:"is_group" db:"is_group"`
	GroupSize int  `json:"group_size,omitempty" db:"group_size"`

	EntryTime time.Time  `json:"entry_time" db:"entry_time"`
	ExitTime  *time.Time `json:"exit_time,omitempty" db:"exit_time"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Open reports whether the visitor is still inside.
func (a Access) Open() bool { return a.ExitTime == nil }

// Identification is a document held in custody while the visitor is inside,
// linked 0-or-1 to an access. Number uniqueness is enforced by storage.
type Identification struct {
	ID     string `json:"id" db:"id"`
	Type   string `json:"type" db:"type"`
	Number string `json:"number" db:"number"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IdentificationPayload is the inbound shape for creating or replacing the
// identification held for an access.
type IdentificationPayload struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// CheckInRequest carries the inputs for opening an access.
// A zero EntryTime means "now" (engine clock).
type CheckInRequest struct {
	VisitorName string `json:"visitor_name,omitempty"`
	Company     string `json:"company,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Motive      string `json:"motive"`

	BadgeID      string `json:"badge_id,omitempty"`
	ShiftID      string `json:"shift_id,omitempty"`
	CheckpointID string `json:"checkpoint_id,omitempty"`

	CompanionName     string `json:"companion_name,omitempty"`
	CompanionLocation string `json:"companion_location,omitempty"`

	IsGroup   bool `json:"is_group,omitempty"`
	GroupSize int  `json:"group_size,omitempty"`

	EntryTime time.Time `json:"entry_time,omitempty"`

	Identification *IdentificationPayload `json:"identification,omitempty"`
}

// EditRequest is a partial update: nil pointer means "leave unchanged".
// For BadgeID, a pointer to the empty string unbinds the current badge.
type EditRequest struct {
	VisitorName *string `json:"visitor_name,omitempty"`
	Company     *string `json:"company,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Motive      *string `json:"motive,omitempty"`

	BadgeID      *string `json:"badge_id,omitempty"`
	ShiftID      *string `json:"shift_id,omitempty"`
	CheckpointID *string `json:"checkpoint_id,omitempty"`

	CompanionName     *string `json:"companion_name,omitempty"`
	CompanionLocation *string `json:"companion_location,omitempty"`

	IsGroup   *bool `json:"is_group,omitempty"`
	GroupSize *int  `json:"group_size,omitempty"`

	Identification *IdentificationPayload `json:"identification,omitempty"`
}
