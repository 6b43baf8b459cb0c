package stage

import (
	"context"
	"fmt"
	"time"

	"shipit/internal/services"
)

// Outcome is what a local action reports on success.
type Outcome struct {
	Count int
	Note  string
}

// Action is the body of a local stage. On failure it may still return an
// Outcome whose Note carries the operator-facing diagnostic.
type Action func(ctx context.Context) (Outcome, error)

// Local is a stage that runs an in-process action on a worker goroutine.
type Local struct {
	name   string
	action Action
	now    func() time.Time
}

// NewLocal builds a local stage.
func NewLocal(name string, action Action) *Local {
	return &Local{name: name, action: action, now: time.Now}
}

func (l *Local) Name() string { return l.name }

func (l *Local) Run(ctx context.Context, done func(Result)) {
	finish := once(done)
	go func() {
		start := l.now()
		res := l.execute(ctx)
		res.Elapsed = l.now().Sub(start)
		finish(res)
	}()
}

func (l *Local) execute(ctx context.Context) (res Result) {
	res.Stage = l.name
	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("panic: %v", r)
			res = Result{
				Stage:   l.name,
				Failure: FailureLocalAction,
				Note:    services.Describe(cause),
				Err:     services.Wrap(services.ErrLocalAction, l.name, "run", "recovered from panic", cause),
			}
		}
	}()
	if l.action == nil {
		return Result{Stage: l.name, Success: true, Note: "nothing to do"}
	}
	if err := ctx.Err(); err != nil {
		return Result{
			Stage:   l.name,
			Failure: FailureLocalAction,
			Note:    services.Describe(err),
			Err:     services.Wrap(services.ErrLocalAction, l.name, "run", "cancelled before start", err),
		}
	}
	outcome, err := l.action(ctx)
	res.Count = outcome.Count
	res.Note = outcome.Note
	if err != nil {
		res.Failure = FailureLocalAction
		if res.Note == "" {
			res.Note = services.Describe(err)
		}
		res.Err = services.Wrap(services.ErrLocalAction, l.name, "run", "", err)
		return res
	}
	res.Success = true
	return res
}

// Wait returns a local stage that sleeps for d, returning early when ctx is
// cancelled.
func Wait(name string, d time.Duration) *Local {
	return NewLocal(name, func(ctx context.Context) (Outcome, error) {
		if d <= 0 {
			return Outcome{Note: "nothing to do"}, nil
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return Outcome{Note: fmt.Sprintf("waited %s", d)}, nil
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
	})
}

// Func adapts a plain function to an Action.
func Func(fn func(ctx context.Context) error) Action {
	return func(ctx context.Context) (Outcome, error) {
		return Outcome{}, fn(ctx)
	}
}
