package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"access-platform/internal/audit"
	"access-platform/internal/badge"
	"access-platform/internal/facility"

	"github.com/google/uuid"
)

// Engine orchestrates the access record, the badge pool, and the audit trail
// as one atomic unit per visitor operation.
//
// Allocation invariants:
// - A badge is occupied if and only if exactly one open access references it.
// - An access never commits bound to a badge that failed reservation, and a
//   badge is never left occupied with no access pointing at it.
// - Every successful operation appends exactly one audit entry; failed
//   attempts append none.
//
// All three transition algorithms (check-in, edit, check-out) run as a single
// transaction; a lost badge race aborts the whole transaction and surfaces
// ErrBadgeUnavailable with no partial state.
type Engine struct {
	store Store
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, clock: time.Now}
}

// CheckIn opens an access. If a badge id is supplied the badge is reserved in
// the same transaction; losing the reserve race returns ErrBadgeUnavailable
// and leaves no trace.
func (e *Engine) CheckIn(ctx context.Context, creatorID string, req CheckInRequest) (Access, error) {
	if creatorID == "" {
		return Access{}, fmt.Errorf("%w: creator id is required", ErrValidation)
	}
	if err := validateCheckInRequest(req); err != nil {
		return Access{}, err
	}

	now := e.clock().UTC()
	entryTime := req.EntryTime
	if entryTime.IsZero() {
		entryTime = now
	}
	accessID := uuid.NewString()
	identID := uuid.NewString()

	var out Access
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		creator, err := tx.StaffUser(ctx, creatorID)
		if err != nil {
			return refErr(err, "creator", creatorID)
		}
		if err := validateCreator(creator); err != nil {
			return err
		}

		if req.ShiftID != "" {
			s, err := tx.Shift(ctx, req.ShiftID)
			if err != nil {
				return refErr(err, "shift", req.ShiftID)
			}
			if err := validateShiftActive(s); err != nil {
				return err
			}
		}
		if req.CheckpointID != "" {
			cp, err := tx.Checkpoint(ctx, req.CheckpointID)
			if err != nil {
				return refErr(err, "checkpoint", req.CheckpointID)
			}
			if err := validateCheckpointActive(cp); err != nil {
				return err
			}
		}

		if req.BadgeID != "" {
			if _, err := tx.Badge(ctx, req.BadgeID); err != nil {
				return refErr(err, "badge", req.BadgeID)
			}
			if err := e.reserve(ctx, tx, req.BadgeID); err != nil {
				return err
			}
		}

		a := Access{
			ID:                accessID,
			VisitorName:       strings.TrimSpace(req.VisitorName),
			Company:           strings.TrimSpace(req.Company),
			Phone:             strings.TrimSpace(req.Phone),
			Motive:            strings.TrimSpace(req.Motive),
			CreatorID:         creatorID,
			BadgeID:           req.BadgeID,
			ShiftID:           req.ShiftID,
			CheckpointID:      req.CheckpointID,
			CompanionName:     strings.TrimSpace(req.CompanionName),
			CompanionLocation: strings.TrimSpace(req.CompanionLocation),
			IsGroup:           req.IsGroup,
			GroupSize:         req.GroupSize,
			EntryTime:         entryTime,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		if req.Identification != nil {
			ident := Identification{
				ID:        identID,
				Type:      strings.TrimSpace(req.Identification.Type),
				Number:    strings.TrimSpace(req.Identification.Number),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.InsertIdentification(ctx, ident); err != nil {
				return err
			}
			a.IdentificationID = ident.ID
		}

		if err := tx.InsertAccess(ctx, a); err != nil {
			return err
		}

		entry, err := audit.Prepare(audit.Entry{
			Category:         audit.CategoryAccess,
			Action:           audit.ActionRegisterEntry,
			Description:      fmt.Sprintf("visitor entry registered (%s)", a.Motive),
			ActorID:          creatorID,
			AccessID:         a.ID,
			BadgeID:          a.BadgeID,
			CheckpointID:     a.CheckpointID,
			IdentificationID: a.IdentificationID,
		}, now)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, entry); err != nil {
			return err
		}

		out = a
		return nil
	})
	if err != nil {
		return Access{}, err
	}
	return out, nil
}

// Edit applies a partial update to an open access. Changing the bound badge
// releases the current one and reserves the new one inside the same
// transaction; release comes first so handing the access the badge it
// already holds is a pure skip, not a false conflict.
func (e *Engine) Edit(ctx context.Context, actorID, accessID string, req EditRequest) (Access, error) {
	if actorID == "" || accessID == "" {
		return Access{}, fmt.Errorf("%w: actor and access ids are required", ErrValidation)
	}
	if req.Identification != nil {
		if err := validateIdentificationPayload(*req.Identification); err != nil {
			return Access{}, err
		}
	}

	now := e.clock().UTC()
	identID := uuid.NewString()

	var out Access
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.AccessForUpdate(ctx, accessID)
		if err != nil {
			return err
		}
		if !a.Open() {
			return fmt.Errorf("%w: access %s", ErrAlreadyClosed, a.ID)
		}

		currentBadge := a.BadgeID
		applyEdit(&a, req)

		if strings.TrimSpace(a.Motive) == "" {
			return fmt.Errorf("%w: motive is required", ErrValidation)
		}
		if err := validateCompanionFields(a.CompanionName, a.CompanionLocation); err != nil {
			return err
		}
		if err := validateGroupFields(a.IsGroup, a.GroupSize); err != nil {
			return err
		}

		if req.ShiftID != nil && a.ShiftID != "" {
			s, err := tx.Shift(ctx, a.ShiftID)
			if err != nil {
				return refErr(err, "shift", a.ShiftID)
			}
			if err := validateShiftActive(s); err != nil {
				return err
			}
		}
		if req.CheckpointID != nil && a.CheckpointID != "" {
			cp, err := tx.Checkpoint(ctx, a.CheckpointID)
			if err != nil {
				return refErr(err, "checkpoint", a.CheckpointID)
			}
			if err := validateCheckpointActive(cp); err != nil {
				return err
			}
		}

		// Badge swap. Release before reserve; "new badge == current badge"
		// skips both calls entirely.
		if a.BadgeID != currentBadge {
			if currentBadge != "" {
				if err := tx.ReleaseBadge(ctx, currentBadge); err != nil {
					return err
				}
			}
			if a.BadgeID != "" {
				if _, err := tx.Badge(ctx, a.BadgeID); err != nil {
					return refErr(err, "badge", a.BadgeID)
				}
				if err := e.reserve(ctx, tx, a.BadgeID); err != nil {
					return err
				}
			}
		}

		if req.Identification != nil {
			ident := Identification{
				Type:      strings.TrimSpace(req.Identification.Type),
				Number:    strings.TrimSpace(req.Identification.Number),
				UpdatedAt: now,
			}
			if a.IdentificationID != "" {
				ident.ID = a.IdentificationID
				if err := tx.UpdateIdentification(ctx, ident); err != nil {
					return err
				}
			} else {
				ident.ID = identID
				ident.CreatedAt = now
				if err := tx.InsertIdentification(ctx, ident); err != nil {
					return err
				}
				a.IdentificationID = ident.ID
			}
		}

		a.UpdatedAt = now
		if err := tx.UpdateAccess(ctx, a); err != nil {
			return err
		}

		entry, err := audit.Prepare(audit.Entry{
			Category:         audit.CategoryAccess,
			Action:           audit.ActionUpdateAccess,
			Description:      "access updated",
			ActorID:          actorID,
			AccessID:         a.ID,
			BadgeID:          a.BadgeID,
			CheckpointID:     a.CheckpointID,
			IdentificationID: a.IdentificationID,
		}, now)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, entry); err != nil {
			return err
		}

		out = a
		return nil
	})
	if err != nil {
		return Access{}, err
	}
	return out, nil
}

// CheckOut closes an access: stamps the exit time, releases the bound badge
// if any, and records the exit. This is the only path that frees a badge
// without binding a new access to it.
func (e *Engine) CheckOut(ctx context.Context, actorID, accessID string) (Access, error) {
	if actorID == "" || accessID == "" {
		return Access{}, fmt.Errorf("%w: actor and access ids are required", ErrValidation)
	}

	now := e.clock().UTC()

	var out Access
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.AccessForUpdate(ctx, accessID)
		if err != nil {
			return err
		}
		if !a.Open() {
			return fmt.Errorf("%w: access %s closed at %s", ErrAlreadyClosed, a.ID, a.ExitTime.UTC().Format(time.RFC3339))
		}

		if err := tx.CloseAccess(ctx, a.ID, now); err != nil {
			return err
		}
		if a.BadgeID != "" {
			if err := tx.ReleaseBadge(ctx, a.BadgeID); err != nil {
				return err
			}
		}

		entry, err := audit.Prepare(audit.Entry{
			Category:     audit.CategoryAccess,
			Action:       audit.ActionRegisterExit,
			Description:  "visitor exit registered",
			ActorID:      actorID,
			AccessID:     a.ID,
			BadgeID:      a.BadgeID,
			CheckpointID: a.CheckpointID,
		}, now)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, entry); err != nil {
			return err
		}

		a.ExitTime = &now
		a.UpdatedAt = now
		out = a
		return nil
	})
	if err != nil {
		return Access{}, err
	}
	return out, nil
}

func (e *Engine) Get(ctx context.Context, id string) (Access, error) {
	if id == "" {
		return Access{}, fmt.Errorf("%w: access id is required", ErrValidation)
	}
	return e.store.GetAccess(ctx, id)
}

// ListOpen returns accesses whose visitors are still inside, optionally
// scoped to one checkpoint.
func (e *Engine) ListOpen(ctx context.Context, checkpointID string) ([]Access, error) {
	return e.store.ListOpen(ctx, checkpointID)
}

func (e *Engine) reserve(ctx context.Context, tx Tx, badgeID string) error {
	err := tx.ReserveBadge(ctx, badgeID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badge.ErrOccupied):
		return fmt.Errorf("%w: badge %s", ErrBadgeUnavailable, badgeID)
	case errors.Is(err, badge.ErrNotFound):
		return fmt.Errorf("%w: badge %s", ErrReferenceNotFound, badgeID)
	default:
		return err
	}
}

func applyEdit(a *Access, req EditRequest) {
	if req.VisitorName != nil {
		a.VisitorName = strings.TrimSpace(*req.VisitorName)
	}
	if req.Company != nil {
		a.Company = strings.TrimSpace(*req.Company)
	}
	if req.Phone != nil {
		a.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Motive != nil {
		a.Motive = strings.TrimSpace(*req.Motive)
	}
	if req.BadgeID != nil {
		a.BadgeID = strings.TrimSpace(*req.BadgeID)
	}
	if req.ShiftID != nil {
		a.ShiftID = strings.TrimSpace(*req.ShiftID)
	}
	if req.CheckpointID != nil {
		a.CheckpointID = strings.TrimSpace(*req.CheckpointID)
	}
	if req.CompanionName != nil {
		a.CompanionName = strings.TrimSpace(*req.CompanionName)
	}
	if req.CompanionLocation != nil {
		a.CompanionLocation = strings.TrimSpace(*req.CompanionLocation)
	}
	if req.IsGroup != nil {
		a.IsGroup = *req.IsGroup
	}
	if req.GroupSize != nil {
		a.GroupSize = *req.GroupSize
	}
}

func refErr(err error, kind, id string) error {
	if errors.Is(err, facility.ErrNotFound) || errors.Is(err, badge.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrReferenceNotFound, kind, id)
	}
	return err
}
