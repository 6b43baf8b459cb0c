package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"shipit/internal/services"
	"shipit/internal/stage"
)

// ErrAlreadyStarted is returned when Start is called on a used pipeline.
var ErrAlreadyStarted = errors.New("pipeline already started")

// State is the driver state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Step is one entry of a pipeline.
type Step struct {
	Stage stage.Stage
	// AlwaysRun steps execute even after an earlier step failed.
	AlwaysRun bool
}

// Summary is the aggregate verdict handed to the completion callback.
type Summary struct {
	Name        string
	Success     bool
	FailedStage string
	Failure     *stage.Result
	Results     []stage.Result
	Skipped     []string
	Elapsed     time.Duration
}

// Poster marshals work onto the controlling loop.
type Poster interface {
	Post(fn func()) error
}

// Observer receives stage transitions on the controlling loop.
type Observer interface {
	StageStarted(ctx context.Context, name string, index, total int)
	StageFinished(ctx context.Context, result stage.Result)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver registers stage transition hooks.
func WithObserver(obs Observer) Option {
	return func(p *Pipeline) { p.observer = obs }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline is a single-use ordered sequence of stages.
type Pipeline struct {
	name       string
	steps      []Step
	poster     Poster
	onComplete func(Summary)
	observer   Observer
	now        func() time.Time

	started atomic.Bool

	// Fields below are owned by the controlling loop.
	ctx       context.Context
	state     State
	index     int
	awaiting  bool
	failed    bool
	startedAt time.Time
	summary   Summary
}

// New builds a pipeline. onComplete runs exactly once on the loop.
func New(name string, steps []Step, poster Poster, onComplete func(Summary), opts ...Option) *Pipeline {
	p := &Pipeline{
		name:       name,
		steps:      append([]Step(nil), steps...),
		poster:     poster,
		onComplete: onComplete,
		now:        time.Now,
		index:      -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Len returns the number of steps.
func (p *Pipeline) Len() int { return len(p.steps) }

// State returns the driver state. Call it from the controlling loop.
func (p *Pipeline) State() State { return p.state }

// Current returns the index of the running step, or -1.
func (p *Pipeline) Current() int {
	if p.state != StateRunning {
		return -1
	}
	return p.index
}

// Start begins driving the steps. It must be called on the controlling loop
// and returns ErrAlreadyStarted on a second call.
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if ctx == nil {
		ctx = context.Background()
	}
	p.ctx = ctx
	p.state = StateRunning
	p.startedAt = p.now()
	p.summary = Summary{Name: p.name}
	p.advance()
	return nil
}

func (p *Pipeline) advance() {
	for next := p.index + 1; next < len(p.steps); next++ {
		step := p.steps[next]
		if step.Stage == nil {
			continue
		}
		if p.failed && !step.AlwaysRun {
			p.summary.Skipped = append(p.summary.Skipped, step.Stage.Name())
			continue
		}
		p.index = next
		p.launch(next, step)
		return
	}
	p.finish()
}

func (p *Pipeline) launch(index int, step Step) {
	name := step.Stage.Name()
	ctx := services.WithStage(p.ctx, name)
	if step.AlwaysRun {
		// Compensating steps still run while the host shuts down.
		ctx = context.WithoutCancel(ctx)
	}
	p.awaiting = true
	if p.observer != nil {
		p.observer.StageStarted(ctx, name, index, len(p.steps))
	}

	done := func(res stage.Result) {
		if res.Stage == "" {
			res.Stage = name
		}
		p.post(func() { p.complete(ctx, index, res) })
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				cause := fmt.Errorf("panic: %v", r)
				done(stage.Result{
					Stage:   name,
					Failure: stage.FailureLocalAction,
					Note:    services.Describe(cause),
					Err:     services.Wrap(services.ErrLocalAction, name, "start", "stage panicked", cause),
				})
			}
		}()
		step.Stage.Run(ctx, done)
	}()
}

func (p *Pipeline) post(fn func()) {
	if p.poster == nil {
		fn()
		return
	}
	if err := p.poster.Post(fn); err != nil {
		// The loop is gone; finish inline so the completion callback still
		// fires and the guard is released.
		fn()
	}
}

func (p *Pipeline) complete(ctx context.Context, index int, res stage.Result) {
	if p.state != StateRunning || index != p.index || !p.awaiting {
		return
	}
	p.awaiting = false
	p.summary.Results = append(p.summary.Results, res)
	if !res.Success && !p.failed {
		p.failed = true
		p.summary.FailedStage = res.Stage
		failure := res
		p.summary.Failure = &failure
	}
	if p.observer != nil {
		p.observer.StageFinished(ctx, res)
	}
	p.advance()
}

func (p *Pipeline) finish() {
	p.summary.Success = !p.failed
	p.summary.Elapsed = p.now().Sub(p.startedAt)
	if p.failed {
		p.state = StateFailed
	} else {
		p.state = StateSucceeded
	}
	p.index = -1
	if p.onComplete != nil {
		p.onComplete(p.summary)
	}
}
