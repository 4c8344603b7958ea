package badge

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// NOTE: This repository assumes the following table exists:
// - badges (id, type, status, checkpoint_id NULL, created_at)
//
// status is the single authoritative availability flag. Reserve/release are
// conditional UPDATEs so two concurrent reserves on the same badge resolve to
// exactly one winner without any application-level lock.

const pgUniqueViolation = "23505"

// ReserveTx flips a free badge to occupied inside the caller's transaction.
// RowsAffected == 0 doubles as the race tie-break signal: the badge either
// does not exist or another transaction holds it.
func ReserveTx(ctx context.Context, tx *sql.Tx, id string) error {
	const q = `
UPDATE badges
SET status = 'occupied'
WHERE id = $1 AND status = 'free'
`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Distinguish conflict from a dangling reference.
	var status Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM badges WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrOccupied
}

// ReleaseTx flips an occupied badge back to free inside the caller's
// transaction. Releasing an already-free badge is a no-op: callers release
// based on previously-read state, never speculatively.
func ReleaseTx(ctx context.Context, tx *sql.Tx, id string) error {
	const q = `
UPDATE badges
SET status = 'free'
WHERE id = $1 AND status = 'occupied'
`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM badges WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// GetTx reads a badge inside the caller's transaction.
func GetTx(ctx context.Context, tx *sql.Tx, id string) (Badge, error) {
	const q = `
SELECT id, type, status, COALESCE(checkpoint_id, ''), created_at
FROM badges
WHERE id = $1
`
	var b Badge
	if err := tx.QueryRowContext(ctx, q, id).Scan(
		&b.ID,
		&b.Type,
		&b.Status,
		&b.CheckpointID,
		&b.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Badge{}, ErrNotFound
		}
		return Badge{}, err
	}
	return b, nil
}

func getBadge(ctx context.Context, db *sql.DB, id string) (Badge, error) {
	const q = `
SELECT id, type, status, COALESCE(checkpoint_id, ''), created_at
FROM badges
WHERE id = $1
`
	var b Badge
	if err := db.QueryRowContext(ctx, q, id).Scan(
		&b.ID,
		&b.Type,
		&b.Status,
		&b.CheckpointID,
		&b.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Badge{}, ErrNotFound
		}
		return Badge{}, err
	}
	return b, nil
}

// listAvailable is a read-only snapshot. It is advisory (a UI hint); the
// authoritative check is the conditional reserve at commit time.
func listAvailable(ctx context.Context, db *sql.DB, checkpointID string) ([]Badge, error) {
	const q = `
SELECT id, type, status, COALESCE(checkpoint_id, ''), created_at
FROM badges
WHERE status = 'free' AND ($1 = '' OR checkpoint_id = $1)
ORDER BY id
`
	rows, err := db.QueryContext(ctx, q, checkpointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Badge
	for rows.Next() {
		var b Badge
		if err := rows.Scan(&b.ID, &b.Type, &b.Status, &b.CheckpointID, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func insertBadge(ctx context.Context, tx *sql.Tx, b Badge) error {
	const q = `
INSERT INTO badges (id, type, status, checkpoint_id, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5)
`
	_, err := tx.ExecContext(ctx, q,
		b.ID,
		b.Type,
		b.Status,
		b.CheckpointID,
		b.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
