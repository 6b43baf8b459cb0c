package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shipit/internal/loop"
	"shipit/internal/stage"
)

type recorder struct {
	mu      sync.Mutex
	ran     []string
	running int
	overlap bool
}

func (r *recorder) enter(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, name)
	r.running++
	if r.running > 1 {
		r.overlap = true
	}
}

func (r *recorder) leave() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running--
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ran...)
}

type fakeStage struct {
	name    string
	rec     *recorder
	fail    bool
	panics  bool
	doubles bool
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Run(_ context.Context, done func(stage.Result)) {
	if f.panics {
		panic("broken stage")
	}
	f.rec.enter(f.name)
	go func() {
		time.Sleep(5 * time.Millisecond)
		f.rec.leave()
		res := stage.Result{Stage: f.name, Success: !f.fail}
		if f.fail {
			res.Failure = stage.FailureExecution
			res.Err = errors.New("failed")
		}
		done(res)
		if f.doubles {
			done(res)
		}
	}()
}

func runPipeline(t *testing.T, steps []Step) (Summary, int) {
	t.Helper()
	l := loop.New(nil)
	defer l.Stop()

	var (
		mu    sync.Mutex
		calls int
		got   Summary
	)
	finished := make(chan struct{})
	p := New("test", steps, l, func(s Summary) {
		mu.Lock()
		calls++
		got = s
		mu.Unlock()
		if calls == 1 {
			close(finished)
		}
	})
	if err := l.Call(context.Background(), func() {
		if err := p.Start(context.Background()); err != nil {
			t.Errorf("Start: %v", err)
		}
	}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline never completed")
	}
	time.Sleep(30 * time.Millisecond)
	_ = l.Call(context.Background(), func() {
		if p.Start(context.Background()) != ErrAlreadyStarted {
			t.Errorf("expected ErrAlreadyStarted on reuse")
		}
	})
	mu.Lock()
	defer mu.Unlock()
	return got, calls
}

func TestAllStagesSucceed(t *testing.T) {
	rec := &recorder{}
	steps := []Step{
		{Stage: &fakeStage{name: "a", rec: rec}},
		{Stage: &fakeStage{name: "b", rec: rec}},
		{Stage: &fakeStage{name: "c", rec: rec}},
	}
	summary, calls := runPipeline(t, steps)

	if calls != 1 {
		t.Fatalf("completion called %d times", calls)
	}
	if !summary.Success || summary.FailedStage != "" {
		t.Fatalf("expected success, got %+v", summary)
	}
	if got := rec.names(); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected order %v", got)
	}
	if rec.overlap {
		t.Fatal("stages overlapped")
	}
	if len(summary.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(summary.Results))
	}
}

func TestFailureStopsLaterStagesExceptAlwaysRun(t *testing.T) {
	for k := 0; k < 4; k++ {
		rec := &recorder{}
		steps := []Step{
			{Stage: &fakeStage{name: "s0", rec: rec, fail: k == 0}},
			{Stage: &fakeStage{name: "s1", rec: rec, fail: k == 1}},
			{Stage: &fakeStage{name: "revert", rec: rec}, AlwaysRun: true},
			{Stage: &fakeStage{name: "s3", rec: rec, fail: k == 3}},
		}
		summary, calls := runPipeline(t, steps)
		if calls != 1 {
			t.Fatalf("k=%d: completion called %d times", k, calls)
		}
		ran := rec.names()
		switch k {
		case 0:
			if summary.Success || summary.FailedStage != "s0" {
				t.Fatalf("k=0: unexpected summary %+v", summary)
			}
			if len(ran) != 2 || ran[1] != "revert" {
				t.Fatalf("k=0: expected s0 then revert, got %v", ran)
			}
			if len(summary.Skipped) != 2 {
				t.Fatalf("k=0: expected two skipped stages, got %v", summary.Skipped)
			}
		case 1:
			if summary.FailedStage != "s1" || len(ran) != 3 || ran[2] != "revert" {
				t.Fatalf("k=1: ran %v summary %+v", ran, summary)
			}
		case 2:
			if !summary.Success || len(ran) != 4 {
				t.Fatalf("k=2: expected full success, ran %v", ran)
			}
		case 3:
			if summary.FailedStage != "s3" || len(ran) != 4 {
				t.Fatalf("k=3: ran %v summary %+v", ran, summary)
			}
		}
	}
}

func TestPanickingStageFailsPipeline(t *testing.T) {
	rec := &recorder{}
	steps := []Step{
		{Stage: &fakeStage{name: "boom", rec: rec, panics: true}},
		{Stage: &fakeStage{name: "after", rec: rec}},
		{Stage: &fakeStage{name: "cleanup", rec: rec}, AlwaysRun: true},
	}
	summary, calls := runPipeline(t, steps)
	if calls != 1 || summary.Success || summary.FailedStage != "boom" {
		t.Fatalf("unexpected summary %+v (calls=%d)", summary, calls)
	}
	if summary.Failure == nil || summary.Failure.Failure != stage.FailureLocalAction {
		t.Fatalf("expected local action failure, got %+v", summary.Failure)
	}
	if ran := rec.names(); len(ran) != 1 || ran[0] != "cleanup" {
		t.Fatalf("expected only cleanup to run, got %v", ran)
	}
}

func TestDuplicateDoneIsIgnored(t *testing.T) {
	rec := &recorder{}
	steps := []Step{
		{Stage: &fakeStage{name: "a", rec: rec, doubles: true}},
		{Stage: &fakeStage{name: "b", rec: rec}},
	}
	summary, calls := runPipeline(t, steps)
	if calls != 1 || len(summary.Results) != 2 {
		t.Fatalf("unexpected summary %+v calls=%d", summary, calls)
	}
}

func TestEmptyPipelineSucceeds(t *testing.T) {
	summary, calls := runPipeline(t, nil)
	if calls != 1 || !summary.Success {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestStateString(t *testing.T) {
	if StateRunning.String() != "Running" || State(9).String() != "State(9)" {
		t.Fatal("unexpected state labels")
	}
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"git_revert":   "Git Revert",
		"copy-secrets": "Copy Secrets",
		"":             "",
		"build":        "Build",
	}
	for in, want := range tests {
		if got := Label(in); got != want {
			t.Fatalf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}
