package access

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"access-platform/internal/audit"
	"access-platform/internal/badge"
	"access-platform/internal/facility"
)

func newTestStore() *MemoryStore {
	s := NewMemoryStore()
	s.SeedStaffUser(facility.StaffUser{ID: "guard-1", Name: "Ana", Role: "guard", Active: true})
	s.SeedStaffUser(facility.StaffUser{ID: "guard-off", Name: "Rui", Role: "guard", Active: false})
	s.SeedShift(facility.Shift{ID: "shift-day", Name: "Day", Active: true})
	s.SeedCheckpoint(facility.Checkpoint{ID: "cp-main", Name: "Main Gate", Active: true})
	s.SeedCheckpoint(facility.Checkpoint{ID: "cp-closed", Name: "Old Gate", Active: false})
	s.SeedBadge(badge.Badge{ID: "GIA-001", Type: badge.TypeGIA, Status: badge.StatusFree})
	s.SeedBadge(badge.Badge{ID: "GIA-002", Type: badge.TypeGIA, Status: badge.StatusFree})
	s.SeedBadge(badge.Badge{ID: "SGN-001", Type: badge.TypeSGN, Status: badge.StatusOccupied})
	return s
}

func strPtr(s string) *string { return &s }

func TestCheckIn_ReservesBadgeAndAudits(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	eng.clock = func() time.Time { return fixed }

	a, err := eng.CheckIn(context.Background(), "guard-1", CheckInRequest{
		VisitorName:  "Jane Doe",
		Motive:       "maintenance visit",
		BadgeID:      "GIA-001",
		CheckpointID: "cp-main",
		ShiftID:      "shift-day",
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if a.ID == "" || a.BadgeID != "GIA-001" || !a.Open() {
		t.Fatalf("unexpected access: %+v", a)
	}
	if !a.EntryTime.Equal(fixed) {
		t.Errorf("entry time = %v, want clock time %v", a.EntryTime, fixed)
	}

	b, _ := store.BadgeByID("GIA-001")
	if b.Status != badge.StatusOccupied {
		t.Errorf("badge status = %q, want occupied", b.Status)
	}

	entries := store.AuditEntries()
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != audit.ActionRegisterEntry || e.AccessID != a.ID || e.BadgeID != "GIA-001" || e.ActorID != "guard-1" {
		t.Errorf("unexpected audit entry: %+v", e)
	}
}

func TestCheckIn_ExplicitEntryTimeKept(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)

	want := time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC)
	a, err := eng.CheckIn(context.Background(), "guard-1", CheckInRequest{
		Motive:    "delivery",
		EntryTime: want,
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if !a.EntryTime.Equal(want) {
		t.Errorf("entry time = %v, want %v", a.EntryTime, want)
	}
}

func TestCheckIn_ConcurrentSameBadge(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = eng.CheckIn(context.Background(), "guard-1", CheckInRequest{
				Motive:  "concurrent visit",
				BadgeID: "GIA-001",
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrBadgeUnavailable):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != n-1 {
		t.Fatalf("success = %d, conflicts = %d, want 1 and %d", ok, conflict, n-1)
	}

	b, _ := store.BadgeByID("GIA-001")
	if b.Status != badge.StatusOccupied {
		t.Errorf("badge status = %q, want occupied", b.Status)
	}
	if got := len(store.AuditEntries()); got != 1 {
		t.Errorf("audit entries = %d, want exactly 1", got)
	}
}

func TestCheckIn_Failures(t *testing.T) {
	tests := []struct {
		name    string
		creator string
		req     CheckInRequest
		want    error
	}{
		{"missing motive", "guard-1", CheckInRequest{BadgeID: "GIA-001"}, ErrValidation},
		{"missing creator", "", CheckInRequest{Motive: "visit"}, ErrValidation},
		{"inactive creator", "guard-off", CheckInRequest{Motive: "visit"}, ErrValidation},
		{"unknown creator", "nobody", CheckInRequest{Motive: "visit"}, ErrReferenceNotFound},
		{"companion name without location", "guard-1", CheckInRequest{Motive: "visit", CompanionName: "Bob"}, ErrValidation},
		{"group without size", "guard-1", CheckInRequest{Motive: "visit", IsGroup: true}, ErrValidation},
		{"group size without flag", "guard-1", CheckInRequest{Motive: "visit", GroupSize: 4}, ErrValidation},
		{"inactive checkpoint", "guard-1", CheckInRequest{Motive: "visit", CheckpointID: "cp-closed"}, ErrValidation},
		{"unknown shift", "guard-1", CheckInRequest{Motive: "visit", ShiftID: "shift-night"}, ErrReferenceNotFound},
		{"unknown badge", "guard-1", CheckInRequest{Motive: "visit", BadgeID: "GIA-999"}, ErrReferenceNotFound},
		{"occupied badge", "guard-1", CheckInRequest{Motive: "visit", BadgeID: "SGN-001"}, ErrBadgeUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newTestStore()
			eng := NewEngine(store)
			_, err := eng.CheckIn(context.Background(), tc.creator, tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if got := len(store.AuditEntries()); got != 0 {
				t.Errorf("failed check-in appended %d audit entries", got)
			}
		})
	}
}

func TestCheckIn_IdentificationCustody(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)

	a, err := eng.CheckIn(context.Background(), "guard-1", CheckInRequest{
		Motive:         "interview",
		Identification: &IdentificationPayload{Type: "passport", Number: "X123456"},
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if a.IdentificationID == "" {
		t.Fatal("identification id not set on access")
	}

	// Same document number while the first visitor is still inside.
	_, err = eng.CheckIn(context.Background(), "guard-1", CheckInRequest{
		Motive:         "interview",
		Identification: &IdentificationPayload{Type: "passport", Number: "X123456"},
	})
	if !errors.Is(err, ErrDuplicateIdentification) {
		t.Fatalf("err = %v, want ErrDuplicateIdentification", err)
	}
	if got := len(store.AuditEntries()); got != 1 {
		t.Errorf("audit entries = %d, want 1", got)
	}
}

func TestCheckOut_FreesBadge(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)

	a, err := eng.CheckIn(context.Background(), "guard-1", CheckInRequest{
		Motive:  "visit",
		BadgeID: "GIA-001",
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	closed, err := eng.CheckOut(context.Background(), "guard-1", a.ID)
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if closed.Open() || closed.ExitTime == nil {
		t.Fatalf("access not closed: %+v", closed)
	}

	b, _ := store.BadgeByID("GIA-001")
	if b.Status != badge.StatusFree {
		t.Errorf("badge status = %q, want free", b.Status)
	}

	entries := store.AuditEntries()
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	if entries[1].Action != audit.ActionRegisterExit {
		t.Errorf("second entry action = %q, want %q", entries[1].Action, audit.ActionRegisterExit)
	}
}

func TestCheckOut_AlreadyClosed(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)

	a, err := eng.CheckIn(context.Background(), "guard-1", CheckInRequest{Motive: "visit"})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	first, err := eng.CheckOut(context.Background(), "guard-1", a.ID)
	if err != nil {
		t.Fatalf("first CheckOut: %v", err)
	}

	_, err = eng.CheckOut(context.Background(), "guard-1", a.ID)
	if !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("second CheckOut err = %v, want ErrAlreadyClosed", err)
	}

	got, err := store.GetAccess(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetAccess: %v", err)
	}
	if got.ExitTime == nil || !got.ExitTime.Equal(*first.ExitTime) {
		t.Errorf("exit time moved: got %v, want %v", got.ExitTime, first.ExitTime)
	}
	if entries := store.AuditEntries(); len(entries) != 2 {
		t.Errorf("audit entries = %d, want 2", len(entries))
	}
}

func TestEdit_SwapBadge(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)

	a, err := eng.CheckIn(context.Background(), "guard-1", CheckInRequest{
		Motive:  "visit",
		BadgeID: "GIA-001",
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	updated, err := eng.Edit(context.Background(), "guard-1", a.ID, EditRequest{
		BadgeID: strPtr("GIA-002"),
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if updated.BadgeID != "GIA-002" {
		t.Fatalf("badge id = %q, want GIA-002", updated.BadgeID)
	}

	b1, _ := store.BadgeByID("GIA-001")
	b2, _ := store.BadgeByID("GIA-002")
	if b1.Status != badge.StatusFree {
		t.Errorf("old badge status = %q, want free", b1.Status)
	}
	if b2.Status != badge.StatusOccupied {
		t.Errorf("new badge status = %q, want occupied", b2.Status)
	}
}

func TestEdit_BadgeConflictRollsBack(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)

	a, err := eng.CheckIn(context.Background(), "guard-1", CheckInRequest{
		Motive:  "visit",
		BadgeID: "GIA-001",
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	auditBefore := len(store.AuditEntries())

	// SGN-001 is seeded occupied, so the release of GIA-001 inside the
	// transaction must be undone.
	_, err = eng.Edit(context.Background(), "guard-1", a.ID, EditRequest{
		BadgeID: strPtr("SGN-001"),
	})
	if !errors.Is(err, ErrBadgeUnavailable) {
		t.Fatalf("err = %v, want ErrBadgeUnavailable", err)
	}

	b1, _ := store.BadgeByID("GIA-001")
	if b1.Status != badge.StatusOccupied {
		t.Errorf("original badge status = %q, want still occupied", b1.Status)
	}
	got, err := store.GetAccess(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetAccess: %v", err)
	}
	if got.BadgeID != "GIA-001" {
		t.Errorf("access badge = %q, want unchanged GIA-001", got.BadgeID)
	}
	if len(store.AuditEntries()) != auditBefore {
		t.Errorf("failed edit appended audit entries")
	}
}

func TestEdit_SameBadgeSkipsPool(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)

	a, err := eng.CheckIn(context.Background(), "guard-1", CheckInRequest{
		Motive:  "visit",
		BadgeID: "GIA-001",
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	reserves, releases := store.ReserveCalls(), store.ReleaseCalls()

	_, err = eng.Edit(context.Background(), "guard-1", a.ID, EditRequest{
		VisitorName: strPtr("Jane Doe"),
		BadgeID:     strPtr("GIA-001"),
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if store.ReserveCalls() != reserves || store.ReleaseCalls() != releases {
		t.Errorf("same-badge edit touched the pool: reserves %d->%d, releases %d->%d",
			reserves, store.ReserveCalls(), releases, store.ReleaseCalls())
	}
}

func TestEdit_UnbindBadge(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)

	a, err := eng.CheckIn(context.Background(), "guard-1", CheckInRequest{
		Motive:  "visit",
		BadgeID: "GIA-001",
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	updated, err := eng.Edit(context.Background(), "guard-1", a.ID, EditRequest{
		BadgeID: strPtr(""),
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if updated.BadgeID != "" {
		t.Fatalf("badge id = %q, want unbound", updated.BadgeID)
	}
	b, _ := store.BadgeByID("GIA-001")
	if b.Status != badge.StatusFree {
		t.Errorf("badge status = %q, want free", b.Status)
	}
}

func TestEdit_ClosedAccessRejected(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)

	a, err := eng.CheckIn(context.Background(), "guard-1", CheckInRequest{Motive: "visit"})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if _, err := eng.CheckOut(context.Background(), "guard-1", a.ID); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}

	_, err = eng.Edit(context.Background(), "guard-1", a.ID, EditRequest{
		Motive: strPtr("changed"),
	})
	if !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("err = %v, want ErrAlreadyClosed", err)
	}
}

func TestEdit_InvalidMergedState(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)

	a, err := eng.CheckIn(context.Background(), "guard-1", CheckInRequest{Motive: "visit"})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	// Clearing the motive must fail even though it was valid at check-in.
	_, err = eng.Edit(context.Background(), "guard-1", a.ID, EditRequest{
		Motive: strPtr("   "),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestListOpen_FiltersClosedAndCheckpoint(t *testing.T) {
	store := newTestStore()
	eng := NewEngine(store)
	ctx := context.Background()

	a1, err := eng.CheckIn(ctx, "guard-1", CheckInRequest{Motive: "visit", CheckpointID: "cp-main"})
	if err != nil {
		t.Fatalf("CheckIn a1: %v", err)
	}
	a2, err := eng.CheckIn(ctx, "guard-1", CheckInRequest{Motive: "visit"})
	if err != nil {
		t.Fatalf("CheckIn a2: %v", err)
	}
	if _, err := eng.CheckOut(ctx, "guard-1", a2.ID); err != nil {
		t.Fatalf("CheckOut a2: %v", err)
	}

	open, err := eng.ListOpen(ctx, "")
	if err != nil {
		t.Fatalf("ListOpen: %v", err)
	}
	if len(open) != 1 || open[0].ID != a1.ID {
		t.Fatalf("open = %+v, want only a1", open)
	}

	scoped, err := eng.ListOpen(ctx, "cp-main")
	if err != nil {
		t.Fatalf("ListOpen scoped: %v", err)
	}
	if len(scoped) != 1 || scoped[0].ID != a1.ID {
		t.Fatalf("scoped = %+v, want only a1", scoped)
	}
}
