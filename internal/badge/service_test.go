package badge

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

// The pool mutations (reserve/release) are Postgres conditional UPDATEs and
// are exercised end-to-end by the allocation engine's property tests against
// the memory store plus integration tests against Postgres. What we can
// safely unit-test here without a DB:
// - type parsing at the boundary
// - id formatting and range expansion
// - request validation

func TestParseType(t *testing.T) {
	if _, err := ParseType("GIA"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := ParseType("SGN"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := ParseType("XYZ"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if _, err := ParseType(""); err == nil {
		t.Fatalf("expected error for empty type")
	}
}

func TestFormatID(t *testing.T) {
	if got := FormatID(TypeGIA, 1, 3); got != "GIA-001" {
		t.Fatalf("unexpected id: %q", got)
	}
	if got := FormatID(TypeSGN, 42, 4); got != "SGN-0042" {
		t.Fatalf("unexpected id: %q", got)
	}
}

func TestExpandRange(t *testing.T) {
	ids, err := expandRange(TypeGIA, 1, 3, 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(ids) != 3 || ids[0] != "GIA-001" || ids[2] != "GIA-003" {
		t.Fatalf("unexpected ids: %v", ids)
	}

	if _, err := expandRange(TypeGIA, 0, 3, 3); err == nil {
		t.Fatalf("expected error for from <= 0")
	}
	if _, err := expandRange(TypeGIA, 5, 4, 3); err == nil {
		t.Fatalf("expected error for to < from")
	}
	if _, err := expandRange(TypeGIA, 1, maxRangeSize+1, 3); err == nil {
		t.Fatalf("expected error for oversized range")
	}
}

func TestService_Create_RejectsInvalidArgs(t *testing.T) {
	svc := NewService((*sql.DB)(nil))

	if _, err := svc.Create(context.Background(), "", CreateRequest{ID: "GIA-001", Type: "GIA"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument (missing actor), got %v", err)
	}
	if _, err := svc.Create(context.Background(), "admin", CreateRequest{ID: "", Type: "GIA"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument (missing id), got %v", err)
	}
	if _, err := svc.Create(context.Background(), "admin", CreateRequest{ID: "GIA-001", Type: "nope"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument (bad type), got %v", err)
	}
}

func TestService_CreateRange_RejectsInvalidArgs(t *testing.T) {
	svc := NewService((*sql.DB)(nil))

	if _, err := svc.CreateRange(context.Background(), "", RangeRequest{Type: "GIA", From: 1, To: 5}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument (missing actor), got %v", err)
	}
	if _, err := svc.CreateRange(context.Background(), "admin", RangeRequest{Type: "GIA", From: 3, To: 1}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument (inverted range), got %v", err)
	}
}
