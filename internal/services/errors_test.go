package services_test

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"shipit/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrLocalAction, "clean", "delete", "failed", base)
	if !errors.Is(err, services.ErrLocalAction) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"clean", "delete", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrLocalAction) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestDescribeNamesInnermostType(t *testing.T) {
	got := services.Describe(&fs.PathError{Op: "unlinkat", Path: "Library", Err: fs.ErrPermission})
	if !strings.HasPrefix(got, "*fs.PathError ") {
		t.Fatalf("expected type prefix, got %q", got)
	}
	if !strings.Contains(got, "permission denied") {
		t.Fatalf("expected message, got %q", got)
	}
	if services.Describe(nil) != "" {
		t.Fatal("expected empty description for nil")
	}
}
