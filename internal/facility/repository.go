package facility

import (
	"context"
	"database/sql"
	"errors"
)

// NOTE: These queries assume the following tables exist:
// - checkpoints (id, name, active, created_at)
// - shifts (id, name, active, created_at)
// - staff_users (id, name, role, active, created_at)

var ErrNotFound = errors.New("facility: not found")

// GetCheckpointTx reads a checkpoint inside the caller's transaction.
func GetCheckpointTx(ctx context.Context, tx *sql.Tx, id string) (Checkpoint, error) {
	const q = `
SELECT id, name, active, created_at
FROM checkpoints
WHERE id = $1
`
	var cp Checkpoint
	if err := tx.QueryRowContext(ctx, q, id).Scan(
		&cp.ID,
		&cp.Name,
		&cp.Active,
		&cp.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Checkpoint{}, ErrNotFound
		}
		return Checkpoint{}, err
	}
	return cp, nil
}

// GetShiftTx reads a shift inside the caller's transaction.
func GetShiftTx(ctx context.Context, tx *sql.Tx, id string) (Shift, error) {
	const q = `
SELECT id, name, active, created_at
FROM shifts
WHERE id = $1
`
	var s Shift
	if err := tx.QueryRowContext(ctx, q, id).Scan(
		&s.ID,
		&s.Name,
		&s.Active,
		&s.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Shift{}, ErrNotFound
		}
		return Shift{}, err
	}
	return s, nil
}

// GetStaffUserTx reads a staff user inside the caller's transaction.
func GetStaffUserTx(ctx context.Context, tx *sql.Tx, id string) (StaffUser, error) {
	const q = `
SELECT id, name, role, active, created_at
FROM staff_users
WHERE id = $1
`
	var u StaffUser
	if err := tx.QueryRowContext(ctx, q, id).Scan(
		&u.ID,
		&u.Name,
		&u.Role,
		&u.Active,
		&u.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StaffUser{}, ErrNotFound
		}
		return StaffUser{}, err
	}
	return u, nil
}
