package badge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"access-platform/internal/audit"
	"access-platform/pkg/utils"
)

// Service provides badge pool administration: creation and read-only views.
//
// Pool invariants:
// - Badge ids are caller-visible and globally unique (series + padded number).
// - The availability flag is mutated only by the allocation engine; admin
//   operations never touch status after creation.
// - Every creation writes one audit entry in the same transaction.
type Service struct {
	db *sql.DB
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, clock: time.Now}
}

var (
	ErrNotFound        = errors.New("badge: not found")
	ErrOccupied        = errors.New("badge: occupied")
	ErrAlreadyExists   = errors.New("badge: already exists")
	ErrInvalidArgument = errors.New("badge: invalid argument")
)

type CreateRequest struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

// RangeRequest creates Width-padded ids From..To inclusive, e.g.
// {Type: "GIA", From: 1, To: 50, Width: 3} -> GIA-001 .. GIA-050.
type RangeRequest struct {
	Type         string `json:"type"`
	From         int    `json:"from"`
	To           int    `json:"to"`
	Width        int    `json:"width,omitempty"`
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

const maxRangeSize = 1000

func (s *Service) Create(ctx context.Context, actorID string, req CreateRequest) (Badge, error) {
	if actorID == "" || req.ID == "" {
		return Badge{}, ErrInvalidArgument
	}
	t, err := ParseType(req.Type)
	if err != nil {
		return Badge{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	b := Badge{
		ID:           req.ID,
		Type:         t,
		Status:       StatusFree,
		CheckpointID: req.CheckpointID,
		CreatedAt:    s.clock().UTC(),
	}

	err = utils.WithDefaultTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertBadge(ctx, tx, b); err != nil {
			return err
		}
		e, err := audit.Prepare(audit.Entry{
			Category:     audit.CategoryBadge,
			Action:       audit.ActionCreateBadge,
			Description:  fmt.Sprintf("badge %s created", b.ID),
			ActorID:      actorID,
			BadgeID:      b.ID,
			CheckpointID: b.CheckpointID,
		}, b.CreatedAt)
		if err != nil {
			return err
		}
		return audit.InsertTx(ctx, tx, e)
	})
	if err != nil {
		return Badge{}, err
	}
	return b, nil
}

func (s *Service) CreateRange(ctx context.Context, actorID string, req RangeRequest) ([]Badge, error) {
	if actorID == "" {
		return nil, ErrInvalidArgument
	}
	t, err := ParseType(req.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	ids, err := expandRange(t, req.From, req.To, req.Width)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	badges := make([]Badge, 0, len(ids))
	for _, id := range ids {
		badges = append(badges, Badge{
			ID:           id,
			Type:         t,
			Status:       StatusFree,
			CheckpointID: req.CheckpointID,
			CreatedAt:    now,
		})
	}

	err = utils.WithDefaultTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, b := range badges {
			if err := insertBadge(ctx, tx, b); err != nil {
				if errors.Is(err, ErrAlreadyExists) {
					return fmt.Errorf("%w: %s", ErrAlreadyExists, b.ID)
				}
				return err
			}
		}
		e, err := audit.Prepare(audit.Entry{
			Category:     audit.CategoryBadge,
			Action:       audit.ActionCreateBadgeRange,
			Description:  fmt.Sprintf("badge range %s..%s created (%d badges)", ids[0], ids[len(ids)-1], len(ids)),
			ActorID:      actorID,
			CheckpointID: req.CheckpointID,
		}, now)
		if err != nil {
			return err
		}
		return audit.InsertTx(ctx, tx, e)
	})
	if err != nil {
		return nil, err
	}
	return badges, nil
}

func (s *Service) Get(ctx context.Context, id string) (Badge, error) {
	if id == "" {
		return Badge{}, ErrInvalidArgument
	}
	return getBadge(ctx, s.db, id)
}

// ListAvailable returns free badges, optionally filtered to one checkpoint's
// pool. The snapshot is advisory; callers must still survive a reserve
// conflict at check-in time.
func (s *Service) ListAvailable(ctx context.Context, checkpointID string) ([]Badge, error) {
	return listAvailable(ctx, s.db, checkpointID)
}

func expandRange(t Type, from, to, width int) ([]string, error) {
	if from <= 0 || to < from {
		return nil, fmt.Errorf("%w: range must satisfy 0 < from <= to", ErrInvalidArgument)
	}
	if to-from+1 > maxRangeSize {
		return nil, fmt.Errorf("%w: range exceeds %d badges", ErrInvalidArgument, maxRangeSize)
	}
	if width <= 0 {
		width = 3
	}
	ids := make([]string, 0, to-from+1)
	for n := from; n <= to; n++ {
		ids = append(ids, FormatID(t, n, width))
	}
	return ids, nil
}
