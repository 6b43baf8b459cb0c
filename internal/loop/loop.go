// Package loop provides the controlling goroutine that owns orchestration
// state.
//
// Workers (process supervisors, local actions, the watchdog ticker) never
// touch shared state directly. They Post a closure, and the loop runs posted
// closures one at a time in the order they were received.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"shipit/internal/logging"
)

// ErrStopped is returned when work is submitted after Stop.
var ErrStopped = errors.New("controlling loop stopped")

// Loop runs posted functions sequentially on a single goroutine.
type Loop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool
	done    chan struct{}
	logger  *slog.Logger
}

// New starts a loop goroutine.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &Loop{
		done:   make(chan struct{}),
		logger: logger.With(logging.String(logging.FieldComponent, "loop")),
	}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

// Post enqueues fn without waiting for it to run. Posting never blocks, so
// workers can always hand results back even while the loop is busy.
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return ErrStopped
	}
	l.queue = append(l.queue, fn)
	l.cond.Signal()
	return nil
}

// Call runs fn on the loop and waits for it to return. Calling it from the
// loop goroutine itself would deadlock.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains queued work and ends the loop. It blocks until the loop
// goroutine has exited.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.stopped {
		l.stopped = true
		l.cond.Signal()
	}
	l.mu.Unlock()
	<-l.done
}

// Done is closed when the loop goroutine exits.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.stopped {
			l.cond.Wait()
		}
		if len(l.queue) == 0 && l.stopped {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.invoke(fn)
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(l.logger, "posted function panicked", "loop_panic",
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldErrorHint, "a completion handler failed; the loop keeps running"),
			)
		}
	}()
	fn()
}
