// Package stage defines the unit of pipeline work.
//
// A Stage runs one external process or one local action and reports exactly
// one Result through its done callback. Every failure (a tool that could not
// start, a failing exit code, an error or panic inside a local action) is
// converted to a Result here so the pipeline driver only ever sees verdicts.
package stage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shipit/internal/services"
)

// Stage is one named unit of pipeline work.
type Stage interface {
	Name() string
	// Run starts the work and returns without waiting for it. done is
	// invoked exactly once, from any goroutine.
	Run(ctx context.Context, done func(Result))
}

// FailureKind classifies why a stage failed.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureStart
	FailureExecution
	FailureLocalAction
)

func (k FailureKind) String() string {
	switch k {
	case FailureStart:
		return "start_failure"
	case FailureExecution:
		return "execution_failure"
	case FailureLocalAction:
		return "local_action_failure"
	default:
		return "none"
	}
}

// Marker returns the services sentinel matching k.
func (k FailureKind) Marker() error {
	switch k {
	case FailureStart:
		return services.ErrStartFailure
	case FailureExecution:
		return services.ErrExecution
	case FailureLocalAction:
		return services.ErrLocalAction
	default:
		return nil
	}
}

// Result is the outcome of one stage execution.
type Result struct {
	Stage string
	// ExitCode is nil for local actions and for processes that never started.
	ExitCode *int
	Elapsed  time.Duration
	Success  bool
	Note     string
	// Count is the amount of effective work a local action performed
	// (directories deleted, files copied).
	Count   int
	Err     error
	Failure FailureKind
}

// Diagnostic is the operator-facing description of a failed result: the
// error type and message, or the exit code and classifier note.
func (r Result) Diagnostic() string {
	if r.Success {
		return r.Note
	}
	switch {
	case r.Failure == FailureExecution && r.ExitCode != nil:
		if r.Note != "" {
			return fmt.Sprintf("exit code %d: %s", *r.ExitCode, r.Note)
		}
		return fmt.Sprintf("exit code %d", *r.ExitCode)
	case r.Note != "":
		return r.Note
	case r.Err != nil:
		return r.Err.Error()
	default:
		return "failed"
	}
}

// once wraps done so that only the first invocation is delivered.
func once(done func(Result)) func(Result) {
	var o sync.Once
	return func(r Result) {
		o.Do(func() {
			if done != nil {
				done(r)
			}
		})
	}
}
