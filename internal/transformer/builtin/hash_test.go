package builtin

import (
	"math"
	"testing"
	"time"
)

func TestHash_Deterministic_WithTrim(t *testing.T) {
	h := Hash{TrimSpace: true}

	r1 := []any{14596725.0, " ABC-123 ", time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)}
	r2 := []any{14596725.0, "ABC-123", time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)}

	k1 := h.Key(r1)
	k2 := h.Key(r2)
	if k1 != k2 {
		t.Fatalf("expected same key after trimming; k1=%s k2=%s", k1, k2)
	}
	if len(k1.String()) != 64 {
		t.Fatalf("expected sha256 hex length 64, got %d", len(k1.String()))
	}
}

func TestHash_ChangesWhenCellChanges(t *testing.T) {
	var h Hash
	a := h.Key([]any{1.0, "A"})
	b := h.Key([]any{1.0, "B"})
	if a == b {
		t.Fatalf("expected different keys when inputs differ; both=%s", a)
	}
}

func TestHash_MissingVsEmptyDifferent(t *testing.T) {
	var h Hash
	missing := h.Key([]any{1.0, nil})
	empty := h.Key([]any{1.0, ""})
	nulByte := h.Key([]any{1.0, "\x00"})

	if missing == empty {
		t.Fatalf("missing and empty string must hash differently")
	}
	if missing == nulByte || empty == nulByte {
		t.Fatalf("NUL string must not collide with missing or empty")
	}
}

func TestHash_NoBoundaryCollisions(t *testing.T) {
	var h Hash
	a := h.Key([]any{"ab", "c"})
	b := h.Key([]any{"a", "bc"})
	if a == b {
		t.Fatalf("cell boundaries must be part of the key")
	}
}

func TestHash_TimeZonesAndNegativeZero(t *testing.T) {
	var h Hash
	utc := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	trt := utc.In(time.FixedZone("TRT", 3*3600))
	if h.Key([]any{utc}) != h.Key([]any{trt}) {
		t.Fatalf("equal instants in different zones must hash equally")
	}
	if h.Key([]any{0.0}) != h.Key([]any{math.Copysign(0, -1)}) {
		t.Fatalf("-0 and 0 must hash equally")
	}
}

func TestHash_KeyOfSelectsColumns(t *testing.T) {
	var h Hash
	a := h.KeyOf([]any{"k", 1.0, "x"}, []int{0, 2})
	b := h.KeyOf([]any{"k", 2.0, "x"}, []int{0, 2})
	if a != b {
		t.Fatalf("KeyOf must ignore unselected columns")
	}
}

func TestCanonical_TypeTagged(t *testing.T) {
	if Canonical("1") == Canonical(1.0) {
		t.Fatalf("string and number must not share a canonical form")
	}
	if Canonical(nil) == Canonical("") {
		t.Fatalf("nil and empty string must not share a canonical form")
	}
}
