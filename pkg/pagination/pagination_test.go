package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default for zero, got %d", got)
	}
	if got := NormalizeLimit(-5); got != DefaultLimit {
		t.Fatalf("expected default for negative, got %d", got)
	}
	if got := NormalizeLimit(MaxLimit + 1); got != MaxLimit {
		t.Fatalf("expected cap at max, got %d", got)
	}
	if got := NormalizeLimit(7); got != 7 {
		t.Fatalf("expected passthrough, got %d", got)
	}
	if got := LimitWithBuffer(7); got != 8 {
		t.Fatalf("expected limit+1, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC),
		ID:        uuid.New(),
	}

	token := EncodeCursor(original)
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	parsed, err := ParseCursor(token)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !parsed.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("timestamp mismatch: %v vs %v", parsed.CreatedAt, original.CreatedAt)
	}
	if parsed.ID != original.ID {
		t.Fatalf("id mismatch: %s vs %s", parsed.ID, original.ID)
	}
}

func TestParseCursorEmptyMeansTop(t *testing.T) {
	parsed, err := ParseCursor("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != nil {
		t.Fatal("expected nil cursor for blank token")
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"!!!", "bm90LWEtY3Vyc29y"} {
		if _, err := ParseCursor(token); err == nil {
			t.Fatalf("expected error for %q", token)
		}
	}
}
