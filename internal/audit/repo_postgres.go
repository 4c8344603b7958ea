package audit

import (
	"context"
	"database/sql"
)

// NOTE: This repository assumes the following table exists:
// - audit_entries (id, category, action, description, actor_id,
//   access_id NULL, badge_id NULL, checkpoint_id NULL,
//   identification_id NULL, created_at)
//
// INSERT-only; no Update/Delete statements are provided by design.

// InsertTx appends an entry inside the caller's transaction so the entry
// commits and aborts together with the state change it records.
func InsertTx(ctx context.Context, tx *sql.Tx, e Entry) error {
	const q = `
INSERT INTO audit_entries (
  id, category, action, description, actor_id,
  access_id, badge_id, checkpoint_id, identification_id, created_at
) VALUES (
  $1, $2, $3, $4, $5,
  NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10
)
`
	_, err := tx.ExecContext(ctx, q,
		e.ID,
		e.Category,
		e.Action,
		e.Description,
		e.ActorID,
		e.AccessID,
		e.BadgeID,
		e.CheckpointID,
		e.IdentificationID,
		e.CreatedAt,
	)
	return err
}
