package version

import (
	"errors"
	"testing"
	"time"

	"shipit/internal/services"
)

func TestBump(t *testing.T) {
	today := time.Date(2026, 3, 7, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		in     string
		bundle int
		want   string
		scheme Scheme
	}{
		{"2025.12.24", 42, "2026.03.07", SchemeDate},
		{"2025.12.24.41", 42, "2026.03.07.42", SchemeDatePatch},
		{"1.4.17", 18, "1.4.18", SchemeSemantic},
		{"0.9", 5, "0.9", SchemeOther},
		{"beta", 5, "beta", SchemeOther},
	}
	for _, tt := range tests {
		if got := Detect(tt.in); got != tt.scheme {
			t.Fatalf("Detect(%q) = %s, want %s", tt.in, got, tt.scheme)
		}
		if got := Bump(tt.in, tt.bundle, today); got != tt.want {
			t.Fatalf("Bump(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNext(t *testing.T) {
	today := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	rel, err := Next("1.0.9", "9", today)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rel.Bundle != "10" || rel.Product != "1.0.10" || !rel.ProductChanged() {
		t.Fatalf("unexpected release %+v", rel)
	}
	if _, err := Next("1.0.0", "x", today); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCommitMessageAndTag(t *testing.T) {
	if got := CommitMessage("2026.03.07", "12"); got != "version 2026.03.07 bundle 12" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Tag(" 1.2.3 "); got != "v1.2.3" {
		t.Fatalf("unexpected tag %q", got)
	}
}
