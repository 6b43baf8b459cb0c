package history

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shipit/internal/testsupport"
)

func TestPrependKeepsNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "web", "history.json")
	first := NewEntry("alpha", time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC), "1.0.1", "https://x/", "first")
	second := NewEntry("alpha", time.Date(2026, 3, 2, 18, 45, 0, 0, time.UTC), "1.0.2", "https://x/", "second")

	n, created, err := Prepend(path, first)
	if err != nil || n != 1 || !created {
		t.Fatalf("first Prepend n=%d created=%v err=%v", n, created, err)
	}
	n, created, err = Prepend(path, second)
	if err != nil || n != 2 || created {
		t.Fatalf("second Prepend n=%d created=%v err=%v", n, created, err)
	}

	var doc map[string][]map[string]string
	if err := json.Unmarshal([]byte(testsupport.ReadFile(t, path)), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	list := doc["List"]
	if len(list) != 2 || list[0]["Label"] != "1.0.2" || list[1]["Label"] != "1.0.1" {
		t.Fatalf("unexpected order %+v", list)
	}
	if list[0]["Ver"] != "2" || list[0]["Date"] != "2026-03-02 18:45" || list[0]["Track"] != "alpha" || list[0]["HRef"] != "https://x/" {
		t.Fatalf("unexpected entry %+v", list[0])
	}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	log, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil || len(log.List) != 0 {
		t.Fatalf("expected empty log, got %+v err=%v", log, err)
	}
}

func TestReleaseNotes(t *testing.T) {
	today := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	path := filepath.Join(dir, "releasenotes.txt")

	if got := ReleaseNotes(path, "Pigs", "1.0.3", today); got != "Pigs 1.0.3 built on 2026-03-07" {
		t.Fatalf("unexpected fallback %q", got)
	}
	testsupport.WriteFile(t, path, "New levels\r\nFaster menus\n\nOlder notes\n")
	if got := ReleaseNotes(path, "Pigs", "1.0.3", today); got != "New levels\r\nFaster menus" {
		t.Fatalf("unexpected notes %q", got)
	}
}

func TestTouchHTML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	now := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)

	touched, err := TouchHTML(path, now)
	if err != nil || touched {
		t.Fatalf("missing page: touched=%v err=%v", touched, err)
	}
	testsupport.WriteFile(t, path, "<html></html>")
	touched, err = TouchHTML(path, now)
	if err != nil || !touched {
		t.Fatalf("TouchHTML touched=%v err=%v", touched, err)
	}
	if got := testsupport.ReadFile(t, path); !strings.HasSuffix(got, "<!-- 2026-03-07 10:00:00 -->") {
		t.Fatalf("unexpected page %q", got)
	}
}
