package access

import (
	"context"
	"time"

	"access-platform/internal/audit"
	"access-platform/internal/badge"
	"access-platform/internal/facility"
)

// Store is the persistence contract for the allocation engine. Every engine
// operation runs inside exactly one transaction; the engine never issues a
// sequence of independent writes with manual compensation.
//
// Correctness requirements on implementations:
// - WithinTx must be atomic: if fn returns an error (or panics), no write
//   performed through the Tx may survive.
// - ReserveBadge must be linearizable per badge: of two concurrent reserves
//   on the same free badge, exactly one succeeds and the other observes
//   badge.ErrOccupied. Conditional updates (compare-and-set on the status
//   flag) satisfy this at READ COMMITTED; no application lock is needed.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Read-only snapshots outside any engine transaction.
	GetAccess(ctx context.Context, id string) (Access, error)
	ListOpen(ctx context.Context, checkpointID string) ([]Access, error)
}

// Tx is the unit of work handed to the engine. All reads used for validation
// go through the same Tx as the writes they guard.
type Tx interface {
	StaffUser(ctx context.Context, id string) (facility.StaffUser, error)
	Shift(ctx context.Context, id string) (facility.Shift, error)
	Checkpoint(ctx context.Context, id string) (facility.Checkpoint, error)

	Badge(ctx context.Context, id string) (badge.Badge, error)
	ReserveBadge(ctx context.Context, id string) error
	ReleaseBadge(ctx context.Context, id string) error

	InsertAccess(ctx context.Context, a Access) error
	// AccessForUpdate locks the row so concurrent edits/closures of the
	// same access serialize.
	AccessForUpdate(ctx context.Context, id string) (Access, error)
	UpdateAccess(ctx context.Context, a Access) error
	// CloseAccess stamps exit_time only if it is currently unset.
	CloseAccess(ctx context.Context, id string, exitTime time.Time) error

	InsertIdentification(ctx context.Context, ident Identification) error
	UpdateIdentification(ctx context.Context, ident Identification) error

	AppendAudit(ctx context.Context, e audit.Entry) error
}
