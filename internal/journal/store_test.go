package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"shipit/internal/journal"
	"shipit/internal/testsupport"
)

func TestRecordAndRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	runs := []journal.Run{
		{RunID: "a", Workflow: "pull", Label: "Pull", StartedAt: base, FinishedAt: base.Add(4 * time.Second), Success: true},
		{RunID: "b", Workflow: "build", Label: "Build", ProjectDir: "/p", StartedAt: base.Add(time.Minute), FinishedAt: base.Add(3 * time.Minute), FailedStage: "build", Diagnostic: "exit 2", Simulate: true},
	}
	for _, run := range runs {
		id, err := store.Record(ctx, run)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if id == 0 {
			t.Fatal("expected row id")
		}
	}

	got, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	if got[0].RunID != "b" || got[1].RunID != "a" {
		t.Fatalf("expected newest first, got %s, %s", got[0].RunID, got[1].RunID)
	}
	newest := got[0]
	if newest.Success || !newest.Simulate || newest.FailedStage != "build" || newest.Diagnostic != "exit 2" || newest.ProjectDir != "/p" {
		t.Fatalf("unexpected run: %#v", newest)
	}
	if newest.Duration() != 2*time.Minute {
		t.Fatalf("unexpected duration %s", newest.Duration())
	}
	if !got[1].StartedAt.Equal(base) {
		t.Fatalf("started_at round trip: %s", got[1].StartedAt)
	}

	limited, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent(1): %v", err)
	}
	if len(limited) != 1 || limited[0].RunID != "b" {
		t.Fatalf("unexpected limited runs: %#v", limited)
	}
}

func TestRecordRejectsDuplicateRunID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	run := journal.Run{RunID: "dup", Workflow: "status", Label: "Status", StartedAt: time.Now(), FinishedAt: time.Now()}
	if _, err := store.Record(ctx, run); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := store.Record(ctx, run); err == nil {
		t.Fatal("expected duplicate run id to fail")
	}
}

func TestStatsAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	now := time.Now()
	for i, ok := range []bool{true, false, true} {
		run := journal.Run{RunID: string(rune('x' + i)), Workflow: "push", Label: "Push", StartedAt: now, FinishedAt: now, Success: ok}
		if _, err := store.Record(ctx, run); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	stats, err := store.StatsByWorkflow(ctx)
	if err != nil {
		t.Fatalf("StatsByWorkflow: %v", err)
	}
	if len(stats) != 1 || stats[0].Workflow != "push" || stats[0].Total != 3 || stats[0].Failed != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	remaining, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty journal, got %d", len(remaining))
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), journal.Run{RunID: "keep", Workflow: "clean", Label: "Clean", StartedAt: time.Now(), FinishedAt: time.Now(), Success: true}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenJournal(t, cfg)
	runs, err := reopened.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "keep" {
		t.Fatalf("unexpected runs after reopen: %#v", runs)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	_ = store.Close()

	db, err := sql.Open("sqlite", cfg.JournalPath())
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("update version: %v", err)
	}
	_ = db.Close()

	_, err = journal.Open(cfg)
	if !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
