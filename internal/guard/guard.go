// Package guard admits at most one workflow at a time.
//
// TryAdmit hands out a Token when nothing else is running and every
// precondition holds; Release gives it back. Observers are notified of both
// transitions while the guard lock is held, so anything tied to the token's
// lifetime (the stall watchdog) changes state atomically with it. An optional
// lock file extends the exclusion to other shipit processes sharing the same
// state directory.
package guard

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"shipit/internal/logging"
	"shipit/internal/services"
)

// Token represents an admitted workflow.
type Token struct {
	id      string
	label   string
	started time.Time
}

// ID returns the unique token identifier.
func (t *Token) ID() string { return t.id }

// Label returns the display label supplied on admission.
func (t *Token) Label() string { return t.label }

// Started returns the admission time.
func (t *Token) Started() time.Time { return t.started }

// Precondition returns a non-nil error describing why admission must be
// refused.
type Precondition func() error

// Observer is notified of admissions and releases under the guard lock.
// Implementations must not call back into the guard.
type Observer interface {
	Admitted(tok *Token)
	Released(tok *Token)
}

// Option configures a Guard.
type Option func(*Guard)

// WithLockFile adds cross-process exclusion through a lock file.
func WithLockFile(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.lock = flock.New(path)
		}
	}
}

// WithObserver registers an observer.
func WithObserver(obs Observer) Option {
	return func(g *Guard) {
		if obs != nil {
			g.observers = append(g.observers, obs)
		}
	}
}

// WithClock overrides the time source used for token start times.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Guard is the single-flight admission gate.
type Guard struct {
	mu        sync.Mutex
	current   *Token
	lock      *flock.Flock
	observers []Observer
	now       func() time.Time
	logger    *slog.Logger
}

// New constructs a guard.
func New(opts ...Option) *Guard {
	g := &Guard{now: time.Now, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(logging.String(logging.FieldComponent, "guard"))
	return g
}

// AddObserver registers an observer after construction.
func (g *Guard) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, obs)
}

// TryAdmit returns a token for label, or an error wrapping
// services.ErrBusy when a token is outstanding, or services.ErrPrecondition
// when a precondition fails. No token exists after a rejection.
func (g *Guard) TryAdmit(label string, preconditions ...Precondition) (*Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current != nil {
		return nil, services.Wrap(services.ErrBusy, "guard", "admit", fmt.Sprintf("%s is running", g.current.label), nil)
	}
	for _, check := range preconditions {
		if check == nil {
			continue
		}
		if err := check(); err != nil {
			return nil, services.Wrap(services.ErrPrecondition, "guard", "admit", label, err)
		}
	}
	if g.lock != nil {
		ok, err := g.lock.TryLock()
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "guard", "lock", g.lock.Path(), err)
		}
		if !ok {
			return nil, services.Wrap(services.ErrBusy, "guard", "admit", "another shipit process is running a workflow", nil)
		}
	}

	tok := &Token{id: uuid.NewString(), label: label, started: g.now()}
	g.current = tok
	for _, obs := range g.observers {
		obs.Admitted(tok)
	}
	g.logger.Debug("workflow admitted", logging.String("label", label), logging.String("token", tok.id))
	return tok, nil
}

// Release returns tok. It is safe to call with nil, with a stale token, or
// more than once; only the first release of the current token has effect.
func (g *Guard) Release(tok *Token) bool {
	if tok == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil || g.current != tok {
		return false
	}
	g.current = nil
	if g.lock != nil {
		if err := g.lock.Unlock(); err != nil {
			logging.WarnWithContext(g.logger, "release lock file failed", "guard_unlock_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the lock file if no shipit process is running"),
			)
		}
	}
	for _, obs := range g.observers {
		obs.Released(tok)
	}
	g.logger.Debug("workflow released", logging.String("label", tok.label), logging.String("token", tok.id))
	return true
}

// Active returns the outstanding token, if any.
func (g *Guard) Active() (*Token, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current, g.current != nil
}

// Busy reports whether a token is outstanding.
func (g *Guard) Busy() bool {
	_, ok := g.Active()
	return ok
}
