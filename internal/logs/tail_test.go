package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"shipit/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shipit.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	result, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("expected offset at end of file, got %d", result.Offset)
	}
}

func TestTailFiltersByRunID(t *testing.T) {
	path := writeLog(t, "INFO start run_id=aaa\nINFO start run_id=bbb\nWARN fail run_id=aaa\n")

	result, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: 10, Match: "run_id=aaa"})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 2 || !strings.HasPrefix(result.Lines[1], "WARN") {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
}

func TestTailFromOffsetSkipsPartialLine(t *testing.T) {
	path := writeLog(t, "one\n")
	first, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}

	appendLog(t, path, "two\nthr")
	next, err := logs.Tail(path, logs.TailOptions{Offset: first.Offset})
	if err != nil {
		t.Fatalf("tail from offset: %v", err)
	}
	if len(next.Lines) != 1 || next.Lines[0] != "two" {
		t.Fatalf("unexpected lines: %#v", next.Lines)
	}

	appendLog(t, path, "ee\n")
	last, err := logs.Tail(path, logs.TailOptions{Offset: next.Offset})
	if err != nil {
		t.Fatalf("tail rest: %v", err)
	}
	if len(last.Lines) != 1 || last.Lines[0] != "three" {
		t.Fatalf("partial line was not completed: %#v", last.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(filepath.Join(t.TempDir(), "none.log"), logs.TailOptions{Offset: -1, Limit: 3})
	if err != nil || len(result.Lines) != 0 {
		t.Fatalf("expected empty result, got %#v, %v", result, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []string
	)
	seen := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, logs.TailOptions{Limit: 1}, func(lines []string) {
			mu.Lock()
			got = append(got, lines...)
			mu.Unlock()
			seen <- struct{}{}
		})
	}()

	<-seen
	appendLog(t, path, "later\n")
	select {
	case <-seen:
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not emit the appended line")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("follow: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(got, ",") != "start,later" {
		t.Fatalf("unexpected lines %q", got)
	}
}
