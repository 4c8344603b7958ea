package access

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"access-platform/internal/audit"
	"access-platform/internal/badge"
	"access-platform/internal/facility"
	"access-platform/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// NOTE: This store assumes the following tables exist:
// - accesses (id, visitor_name, company, phone, motive, creator_id,
//   badge_id NULL, identification_id NULL, shift_id NULL, checkpoint_id NULL,
//   companion_name, companion_location, is_group, group_size,
//   entry_time, exit_time NULL, created_at, updated_at)
// - identifications (id, type, number UNIQUE, created_at, updated_at)
// plus the tables documented in internal/badge, internal/audit and
// internal/facility.

// PostgresStore implements Store on a pooled *sql.DB. Badge mutual exclusion
// is delegated to the conditional UPDATE in internal/badge; no isolation
// level above READ COMMITTED is required.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return utils.WithDefaultTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, pgTx{tx: tx})
	})
}

const accessColumns = `
id, COALESCE(visitor_name, ''), COALESCE(company, ''), COALESCE(phone, ''), motive,
creator_id, COALESCE(badge_id, ''), COALESCE(identification_id, ''),
COALESCE(shift_id, ''), COALESCE(checkpoint_id, ''),
COALESCE(companion_name, ''), COALESCE(companion_location, ''),
is_group, group_size, entry_time, exit_time, created_at, updated_at`

func (s *PostgresStore) GetAccess(ctx context.Context, id string) (Access, error) {
	q := `SELECT ` + accessColumns + ` FROM accesses WHERE id = $1`
	return scanAccess(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) ListOpen(ctx context.Context, checkpointID string) ([]Access, error) {
	q := `
SELECT ` + accessColumns + `
FROM accesses
WHERE exit_time IS NULL AND ($1 = '' OR checkpoint_id = $1)
ORDER BY entry_time DESC`
	rows, err := s.db.QueryContext(ctx, q, checkpointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Access
	for rows.Next() {
		a, err := scanAccess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// pgTx adapts one *sql.Tx to the engine's Tx contract.
type pgTx struct {
	tx *sql.Tx
}

func (t pgTx) StaffUser(ctx context.Context, id string) (facility.StaffUser, error) {
	return facility.GetStaffUserTx(ctx, t.tx, id)
}

func (t pgTx) Shift(ctx context.Context, id string) (facility.Shift, error) {
	return facility.GetShiftTx(ctx, t.tx, id)
}

func (t pgTx) Checkpoint(ctx context.Context, id string) (facility.Checkpoint, error) {
	return facility.GetCheckpointTx(ctx, t.tx, id)
}

func (t pgTx) Badge(ctx context.Context, id string) (badge.Badge, error) {
	return badge.GetTx(ctx, t.tx, id)
}

func (t pgTx) ReserveBadge(ctx context.Context, id string) error {
	return badge.ReserveTx(ctx, t.tx, id)
}

func (t pgTx) ReleaseBadge(ctx context.Context, id string) error {
	return badge.ReleaseTx(ctx, t.tx, id)
}

func (t pgTx) InsertAccess(ctx context.Context, a Access) error {
	const q = `
INSERT INTO accesses (
  id, visitor_name, company, phone, motive, creator_id,
  badge_id, identification_id, shift_id, checkpoint_id,
  companion_name, companion_location, is_group, group_size,
  entry_time, exit_time, created_at, updated_at
) VALUES (
  $1, $2, $3, $4, $5, $6,
  NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''),
  $11, $12, $13, $14,
  $15, NULL, $16, $17
)
`
	_, err := t.tx.ExecContext(ctx, q,
		a.ID, a.VisitorName, a.Company, a.Phone, a.Motive, a.CreatorID,
		a.BadgeID, a.IdentificationID, a.ShiftID, a.CheckpointID,
		a.CompanionName, a.CompanionLocation, a.IsGroup, a.GroupSize,
		a.EntryTime, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (t pgTx) AccessForUpdate(ctx context.Context, id string) (Access, error) {
	q := `SELECT ` + accessColumns + ` FROM accesses WHERE id = $1 FOR UPDATE`
	return scanAccess(t.tx.QueryRowContext(ctx, q, id))
}

func (t pgTx) UpdateAccess(ctx context.Context, a Access) error {
	const q = `
UPDATE accesses SET
  visitor_name = $2, company = $3, phone = $4, motive = $5,
  badge_id = NULLIF($6, ''), identification_id = NULLIF($7, ''),
  shift_id = NULLIF($8, ''), checkpoint_id = NULLIF($9, ''),
  companion_name = $10, companion_location = $11,
  is_group = $12, group_size = $13, updated_at = $14
WHERE id = $1
`
	res, err := t.tx.ExecContext(ctx, q,
		a.ID, a.VisitorName, a.Company, a.Phone, a.Motive,
		a.BadgeID, a.IdentificationID, a.ShiftID, a.CheckpointID,
		a.CompanionName, a.CompanionLocation,
		a.IsGroup, a.GroupSize, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t pgTx) CloseAccess(ctx context.Context, id string, exitTime time.Time) error {
	// Conditional on exit_time IS NULL: the row lock from AccessForUpdate
	// already serializes closers, this guards direct callers too.
	const q = `
UPDATE accesses
SET exit_time = $2, updated_at = $2
WHERE id = $1 AND exit_time IS NULL
`
	res, err := t.tx.ExecContext(ctx, q, id, exitTime)
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
	if err := t.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accesses WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyClosed
}

func (t pgTx) InsertIdentification(ctx context.Context, ident Identification) error {
	const q = `
INSERT INTO identifications (id, type, number, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := t.tx.ExecContext(ctx, q, ident.ID, ident.Type, ident.Number, ident.CreatedAt, ident.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateIdentification
	}
	return err
}

func (t pgTx) UpdateIdentification(ctx context.Context, ident Identification) error {
	const q = `
UPDATE identifications SET type = $2, number = $3, updated_at = $4
WHERE id = $1
`
	_, err := t.tx.ExecContext(ctx, q, ident.ID, ident.Type, ident.Number, ident.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateIdentification
	}
	return err
}

func (t pgTx) AppendAudit(ctx context.Context, e audit.Entry) error {
	return audit.InsertTx(ctx, t.tx, e)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccess(r rowScanner) (Access, error) {
	var a Access
	var exit sql.NullTime
	err := r.Scan(
		&a.ID, &a.VisitorName, &a.Company, &a.Phone, &a.Motive,
		&a.CreatorID, &a.BadgeID, &a.IdentificationID,
		&a.ShiftID, &a.CheckpointID,
		&a.CompanionName, &a.CompanionLocation,
		&a.IsGroup, &a.GroupSize, &a.EntryTime, &exit, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Access{}, ErrNotFound
		}
		return Access{}, err
	}
	if exit.Valid {
		t := exit.Time
		a.ExitTime = &t
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
