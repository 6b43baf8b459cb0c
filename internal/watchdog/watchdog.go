// Package watchdog reports how long the active workflow has been running.
//
// The watchdog is Idle until the guard admits a workflow and Active until the
// guard releases it. While Active a ticker posts ticks onto the controlling
// loop; each tick refreshes the live status and, every interval, emits a
// reminder line. It never cancels anything.
package watchdog

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"shipit/internal/guard"
	"shipit/internal/logging"
	"shipit/internal/outputsink"
)

// Defaults used when options are not supplied.
const (
	DefaultInterval = 5 * time.Minute
	DefaultTick     = time.Second
)

// Poster marshals ticks onto the controlling loop.
type Poster interface {
	Post(fn func()) error
}

// Option configures a Watchdog.
type Option func(*Watchdog)

// WithInterval sets the reminder interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watchdog) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithTick sets the tick period.
func WithTick(d time.Duration) Option {
	return func(w *Watchdog) {
		if d > 0 {
			w.tick = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Watchdog) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watchdog) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithoutTicker disables the background ticker; ticks are driven by Tick.
func WithoutTicker() Option {
	return func(w *Watchdog) { w.manual = true }
}

// Watchdog observes the guard.
type Watchdog struct {
	mu       sync.Mutex
	sink     outputsink.Sink
	poster   Poster
	interval time.Duration
	tick     time.Duration
	now      func() time.Time
	logger   *slog.Logger
	manual   bool

	active  bool
	label   string
	started time.Time
	next    time.Duration
	gen     uint64
	stop    chan struct{}
	notices int
}

var _ guard.Observer = (*Watchdog)(nil)

// New builds an idle watchdog.
func New(sink outputsink.Sink, poster Poster, opts ...Option) *Watchdog {
	if sink == nil {
		sink = outputsink.Discard
	}
	w := &Watchdog{
		sink:     sink,
		poster:   poster,
		interval: DefaultInterval,
		tick:     DefaultTick,
		now:      time.Now,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logging.String(logging.FieldComponent, "watchdog"))
	return w
}

// Admitted switches to Active.
func (w *Watchdog) Admitted(tok *guard.Token) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopTickerLocked()
	w.gen++
	w.active = true
	w.label = tok.Label()
	w.started = tok.Started()
	if w.started.IsZero() {
		w.started = w.now()
	}
	w.next = w.interval
	w.notices = 0
	outputsink.SetStatus(w.sink, fmt.Sprintf("%s %s", w.label, FormatElapsed(0)), outputsink.ColorYellow)
	if !w.manual && w.poster != nil {
		w.stop = make(chan struct{})
		go w.run(w.gen, w.stop)
	}
}

// Released switches back to Idle and reports the final elapsed time once.
func (w *Watchdog) Released(*guard.Token) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.active {
		return
	}
	w.stopTickerLocked()
	w.active = false
	w.gen++
	elapsed := w.now().Sub(w.started)
	outputsink.SetStatus(w.sink, "Done in "+FormatElapsed(elapsed), outputsink.ColorGreen)
	w.logger.Debug("watchdog idle", logging.String("label", w.label), logging.Duration("elapsed", elapsed))
}

// Active reports whether a workflow is being observed.
func (w *Watchdog) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Notices returns how many reminder lines were emitted for the current run.
func (w *Watchdog) Notices() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notices
}

// Tick refreshes the status and emits a reminder when the next threshold is
// reached. It is a no-op while Idle.
func (w *Watchdog) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tickLocked(w.gen)
}

func (w *Watchdog) tickLocked(gen uint64) {
	if !w.active || gen != w.gen {
		return
	}
	elapsed := w.now().Sub(w.started)
	stamp := FormatElapsed(elapsed)
	outputsink.SetStatus(w.sink, fmt.Sprintf("%s %s", w.label, stamp), outputsink.ColorYellow)
	if elapsed < w.next {
		return
	}
	w.sink.AddLine("watchdog", fmt.Sprintf("-just notice that %s has been running for %s", w.label, stamp), outputsink.ColorYellow, outputsink.ColorYellow)
	w.notices++
	w.next += w.interval
	w.logger.Info("workflow still running",
		logging.String("label", w.label),
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "stall_notice"),
	)
}

func (w *Watchdog) run(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := w.poster.Post(func() {
				w.mu.Lock()
				defer w.mu.Unlock()
				w.tickLocked(gen)
			}); err != nil {
				return
			}
		}
	}
}

func (w *Watchdog) stopTickerLocked() {
	if w.stop != nil {
		close(w.stop)
		w.stop = nil
	}
}

// FormatElapsed renders d as MM:SS using total minutes, so 75 minutes is
// "75:00".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
