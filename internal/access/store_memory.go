package access

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"access-platform/internal/audit"
	"access-platform/internal/badge"
	"access-platform/internal/facility"
)

// MemoryStore is an in-memory Store for tests. It is not intended for
// production use.
//
// Transactions are serialized under one mutex and roll back by restoring a
// snapshot taken at transaction start. That gives the engine the same
// atomicity and per-badge linearizability guarantees the Postgres store
// provides through conditional updates, which is exactly what the allocation
// property tests need to exercise under real goroutine concurrency.
type MemoryStore struct {
	mu sync.Mutex

	badges      map[string]badge.Badge
	accesses    map[string]Access
	idents      map[string]Identification
	users       map[string]facility.StaffUser
	shifts      map[string]facility.Shift
	checkpoints map[string]facility.Checkpoint

	log *audit.MemoryLog

	// Call counters let tests assert the same-badge no-op property.
	reserveCalls int
	releaseCalls int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		badges:      make(map[string]badge.Badge),
		accesses:    make(map[string]Access),
		idents:      make(map[string]Identification),
		users:       make(map[string]facility.StaffUser),
		shifts:      make(map[string]facility.Shift),
		checkpoints: make(map[string]facility.Checkpoint),
		log:         audit.NewMemoryLog(),
	}
}

/* ===================== seeding & inspection ===================== */

func (s *MemoryStore) SeedBadge(b badge.Badge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badges[b.ID] = b
}

func (s *MemoryStore) SeedStaffUser(u facility.StaffUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryStore) SeedShift(sh facility.Shift) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts[sh.ID] = sh
}

func (s *MemoryStore) SeedCheckpoint(cp facility.Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[cp.ID] = cp
}

func (s *MemoryStore) BadgeByID(id string) (badge.Badge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[id]
	return b, ok
}

func (s *MemoryStore) AuditEntries() []audit.Entry { return s.log.Entries() }

func (s *MemoryStore) ReserveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserveCalls
}

func (s *MemoryStore) ReleaseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseCalls
}

/* ===================== Store ===================== */

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	logLen := s.log.Len()

	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.restore(snap)
		s.log.Truncate(logLen)
		return err
	}
	return nil
}

func (s *MemoryStore) GetAccess(ctx context.Context, id string) (Access, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accesses[id]
	if !ok {
		return Access{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) ListOpen(ctx context.Context, checkpointID string) ([]Access, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Access
	for _, a := range s.accesses {
		if !a.Open() {
			continue
		}
		if checkpointID != "" && a.CheckpointID != checkpointID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.After(out[j].EntryTime) })
	return out, nil
}

type memSnapshot struct {
	badges      map[string]badge.Badge
	accesses    map[string]Access
	idents      map[string]Identification
	users       map[string]facility.StaffUser
	shifts      map[string]facility.Shift
	checkpoints map[string]facility.Checkpoint
}

func (s *MemoryStore) snapshot() memSnapshot {
	return memSnapshot{
		badges:      copyMap(s.badges),
		accesses:    copyMap(s.accesses),
		idents:      copyMap(s.idents),
		users:       copyMap(s.users),
		shifts:      copyMap(s.shifts),
		checkpoints: copyMap(s.checkpoints),
	}
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.badges = snap.badges
	s.accesses = snap.accesses
	s.idents = snap.idents
	s.users = snap.users
	s.shifts = snap.shifts
	s.checkpoints = snap.checkpoints
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

/* ===================== Tx ===================== */

// memTx mutates the store directly; the store mutex is held for the whole
// transaction and WithinTx restores the snapshot on error.
type memTx struct {
	s *MemoryStore
}

func (t *memTx) StaffUser(ctx context.Context, id string) (facility.StaffUser, error) {
	u, ok := t.s.users[id]
	if !ok {
		return facility.StaffUser{}, facility.ErrNotFound
	}
	return u, nil
}

func (t *memTx) Shift(ctx context.Context, id string) (facility.Shift, error) {
	sh, ok := t.s.shifts[id]
	if !ok {
		return facility.Shift{}, facility.ErrNotFound
	}
	return sh, nil
}

func (t *memTx) Checkpoint(ctx context.Context, id string) (facility.Checkpoint, error) {
	cp, ok := t.s.checkpoints[id]
	if !ok {
		return facility.Checkpoint{}, facility.ErrNotFound
	}
	return cp, nil
}

func (t *memTx) Badge(ctx context.Context, id string) (badge.Badge, error) {
	b, ok := t.s.badges[id]
	if !ok {
		return badge.Badge{}, badge.ErrNotFound
	}
	return b, nil
}

func (t *memTx) ReserveBadge(ctx context.Context, id string) error {
	t.s.reserveCalls++
	b, ok := t.s.badges[id]
	if !ok {
		return badge.ErrNotFound
	}
	if b.Status == badge.StatusOccupied {
		return badge.ErrOccupied
	}
	b.Status = badge.StatusOccupied
	t.s.badges[id] = b
	return nil
}

func (t *memTx) ReleaseBadge(ctx context.Context, id string) error {
	t.s.releaseCalls++
	b, ok := t.s.badges[id]
	if !ok {
		return badge.ErrNotFound
	}
	// Releasing a free badge is a no-op, same as the conditional UPDATE.
	b.Status = badge.StatusFree
	t.s.badges[id] = b
	return nil
}

func (t *memTx) InsertAccess(ctx context.Context, a Access) error {
	if _, exists := t.s.accesses[a.ID]; exists {
		return fmt.Errorf("memory store: duplicate access id %s", a.ID)
	}
	t.s.accesses[a.ID] = a
	return nil
}

func (t *memTx) AccessForUpdate(ctx context.Context, id string) (Access, error) {
	a, ok := t.s.accesses[id]
	if !ok {
		return Access{}, ErrNotFound
	}
	return a, nil
}

func (t *memTx) UpdateAccess(ctx context.Context, a Access) error {
	if _, ok := t.s.accesses[a.ID]; !ok {
		return ErrNotFound
	}
	t.s.accesses[a.ID] = a
	return nil
}

func (t *memTx) CloseAccess(ctx context.Context, id string, exitTime time.Time) error {
	a, ok := t.s.accesses[id]
	if !ok {
		return ErrNotFound
	}
	if a.ExitTime != nil {
		return ErrAlreadyClosed
	}
	et := exitTime
	a.ExitTime = &et
	a.UpdatedAt = exitTime
	t.s.accesses[id] = a
	return nil
}

func (t *memTx) InsertIdentification(ctx context.Context, ident Identification) error {
	for _, existing := range t.s.idents {
		if existing.Number == ident.Number {
			return ErrDuplicateIdentification
		}
	}
	t.s.idents[ident.ID] = ident
	return nil
}

func (t *memTx) UpdateIdentification(ctx context.Context, ident Identification) error {
	existing, ok := t.s.idents[ident.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range t.s.idents {
		if id != ident.ID && other.Number == ident.Number {
			return ErrDuplicateIdentification
		}
	}
	existing.Type = ident.Type
	existing.Number = ident.Number
	existing.UpdatedAt = ident.UpdatedAt
	t.s.idents[ident.ID] = existing
	return nil
}

func (t *memTx) AppendAudit(ctx context.Context, e audit.Entry) error {
	t.s.log.Append(e)
	return nil
}
