package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shipit/internal/config"
	"shipit/internal/exitcode"
	"shipit/internal/guard"
	"shipit/internal/journal"
	"shipit/internal/logging"
	"shipit/internal/loop"
	"shipit/internal/notifications"
	"shipit/internal/outputsink"
	"shipit/internal/pipeline"
	"shipit/internal/procrun"
	"shipit/internal/project"
	"shipit/internal/services"
	"shipit/internal/tools"
	"shipit/internal/version"
	"shipit/internal/watchdog"
)

var (
	errNoProject = errors.New("no project folder set")
	errNoTargets = errors.New("no build target found")
)

// Journal records finished runs.
type Journal interface {
	Record(ctx context.Context, run journal.Run) (int64, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink sets the output sink. Defaults to discarding output.
func WithSink(sink outputsink.Sink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithJournal records every finished run.
func WithJournal(j Journal) Option {
	return func(c *Controller) { c.journal = j }
}

// WithNotifier sends run outcomes. Defaults to the service built from config.
func WithNotifier(n notifications.Service) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSimulate makes workflows report what they would do without changing
// anything outside the output.
func WithSimulate(simulate bool) Option {
	return func(c *Controller) { c.simulate = simulate }
}

// WithoutLockFile disables cross-process exclusion.
func WithoutLockFile() Option {
	return func(c *Controller) { c.lockPath = "" }
}

// WithWatchdogOptions passes extra options to the stall watchdog.
func WithWatchdogOptions(opts ...watchdog.Option) Option {
	return func(c *Controller) { c.watchOpts = append(c.watchOpts, opts...) }
}

// Controller admits and drives workflows. All orchestration state is owned
// by its controlling loop.
type Controller struct {
	cfg        *config.Config
	loop       *loop.Loop
	guard      *guard.Guard
	watchdog   *watchdog.Watchdog
	runner     *procrun.Runner
	classifier *exitcode.Classifier
	tools      tools.Set
	sink       outputsink.Sink
	journal    Journal
	notifier   notifications.Service
	logger     *slog.Logger
	now        func() time.Time
	simulate   bool
	lockPath   string
	watchOpts  []watchdog.Option
	load       func(dir string) (*project.Project, error)

	background sync.WaitGroup

	// Owned by the controlling loop.
	project *project.Project
	builds  map[string]bool
	current *run
}

type run struct {
	id      string
	def     Definition
	token   *guard.Token
	ctx     context.Context
	started time.Time
	done    chan pipeline.Summary
}

// NewController wires the loop, guard and watchdog for cfg.
func NewController(cfg *config.Config, opts ...Option) (*Controller, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "init", "config is required", nil)
	}
	c := &Controller{
		cfg:      cfg,
		sink:     outputsink.Discard,
		logger:   logging.NewNop(),
		now:      time.Now,
		lockPath: cfg.LockPath(),
		load:     project.Load,
		builds:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = notifications.NewService(cfg)
	}
	if c.lockPath != "" {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "workflow", "init", "ensure directories", err)
		}
	}
	c.logger = logging.NewComponentLogger(c.logger, "workflow")

	c.loop = loop.New(c.logger)
	c.classifier = exitcode.NewClassifier()
	c.tools = tools.FromConfig(cfg)
	c.runner = procrun.New(c.sink,
		procrun.WithKillGrace(cfg.KillGrace()),
		procrun.WithLogger(c.logger),
	)
	watchOpts := []watchdog.Option{
		watchdog.WithInterval(cfg.WatchInterval()),
		watchdog.WithTick(cfg.TickInterval()),
		watchdog.WithClock(c.now),
		watchdog.WithLogger(c.logger),
	}
	c.watchdog = watchdog.New(c.sink, c.loop, append(watchOpts, c.watchOpts...)...)
	guardOpts := []guard.Option{
		guard.WithObserver(c.watchdog),
		guard.WithClock(c.now),
		guard.WithLogger(c.logger),
	}
	if c.lockPath != "" {
		guardOpts = append(guardOpts, guard.WithLockFile(c.lockPath))
	}
	c.guard = guard.New(guardOpts...)
	return c, nil
}

// Watchdog exposes the stall watchdog, mainly for manual ticking in tests.
func (c *Controller) Watchdog() *watchdog.Watchdog { return c.watchdog }

// Simulate reports whether workflows run in simulate mode.
func (c *Controller) Simulate() bool { return c.simulate }

// Busy reports whether a workflow is running.
func (c *Controller) Busy() bool { return c.guard.Busy() }

// Start admits the named workflow and starts its pipeline. It returns once
// the first stage has been launched; the channel receives the summary after
// the run has been journaled and notified. Rejections wrap services.ErrBusy,
// services.ErrPrecondition or services.ErrNotFound.
func (c *Controller) Start(ctx context.Context, name string) (<-chan pipeline.Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		done     <-chan pipeline.Summary
		startErr error
	)
	if err := c.loop.Call(context.WithoutCancel(ctx), func() {
		done, startErr = c.admit(ctx, name)
	}); err != nil {
		return nil, err
	}
	return done, startErr
}

// Run starts the named workflow and waits for it to finish.
func (c *Controller) Run(ctx context.Context, name string) (pipeline.Summary, error) {
	done, err := c.Start(ctx, name)
	if err != nil {
		return pipeline.Summary{}, err
	}
	summary := <-done
	if !summary.Success {
		return summary, services.Wrap(failureMarker(summary), summary.Name, "run",
			fmt.Sprintf("failed at %s", summary.FailedStage), nil)
	}
	return summary, nil
}

func failureMarker(summary pipeline.Summary) error {
	if summary.Failure == nil {
		return services.ErrExecution
	}
	return summary.Failure.Failure.Marker()
}

// admit runs on the loop.
func (c *Controller) admit(ctx context.Context, name string) (<-chan pipeline.Summary, error) {
	def, ok := Lookup(name)
	if !ok {
		err := services.Wrap(services.ErrNotFound, "workflow", "start", fmt.Sprintf("unknown workflow %q", name), nil)
		outputsink.Error(c.sink, name, fmt.Sprintf("unknown workflow %q", name))
		return nil, err
	}

	env := c.env()
	var (
		steps  []pipeline.Step
		reason error
	)
	tok, err := c.guard.TryAdmit(def.Label,
		func() error {
			if c.project == nil {
				reason = errNoProject
			} else if len(c.project.Settings.Targets) == 0 {
				reason = errNoTargets
			}
			return reason
		},
		func() error {
			steps, reason = def.Plan(env)
			return reason
		},
	)
	if err != nil {
		var message string
		switch {
		case errors.Is(err, services.ErrBusy):
			message = "a command is already executing"
			if active, ok := c.guard.Active(); ok {
				message = fmt.Sprintf("%s (%s)", message, active.Label())
			}
		case reason != nil:
			message = reason.Error()
		default:
			message = err.Error()
		}
		outputsink.Error(c.sink, def.Name, message)
		logging.WarnWithContext(c.logger, "workflow rejected", "workflow_rejected",
			logging.String(logging.FieldWorkflow, def.Name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "no stage was started"),
		)
		return nil, err
	}

	c.sink.ClearLines()
	r := &run{
		id:      uuid.NewString(),
		def:     def,
		token:   tok,
		started: tok.Started(),
		done:    make(chan pipeline.Summary, 1),
	}
	r.ctx = services.WithRunID(services.WithWorkflow(ctx, def.Name), r.id)
	c.current = r

	if c.simulate {
		outputsink.Notice(c.sink, def.Name, fmt.Sprintf("%s (simulate)", pipeline.Label(def.Name)))
	}
	logging.WithContext(r.ctx, c.logger).Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_start"),
		logging.Int("stages", len(steps)),
		logging.Bool("simulate", c.simulate),
	)

	p := pipeline.New(def.Name, steps, c.loop,
		func(summary pipeline.Summary) { c.complete(r, summary) },
		pipeline.WithObserver(&stageReporter{sink: c.sink, logger: c.logger}),
		pipeline.WithClock(c.now),
	)
	if err := p.Start(r.ctx); err != nil {
		c.current = nil
		c.guard.Release(tok)
		return nil, err
	}
	return r.done, nil
}

// complete runs on the loop exactly once per admitted run.
func (c *Controller) complete(r *run, summary pipeline.Summary) {
	entry := journal.Run{
		RunID:      r.id,
		Workflow:   r.def.Name,
		Label:      r.def.Label,
		StartedAt:  r.started,
		FinishedAt: c.now(),
		Success:    summary.Success,
		Simulate:   c.simulate,
	}
	// The guard is released before the follow-ups are handed off.
	defer func() {
		c.background.Add(1)
		go func() {
			defer c.background.Done()
			c.afterRun(context.WithoutCancel(r.ctx), r, entry, summary)
		}()
	}()
	defer c.guard.Release(r.token)
	if c.current == r {
		c.current = nil
	}
	if c.project != nil {
		entry.ProjectDir = c.project.Dir
	}

	label := pipeline.Label(r.def.Name)
	elapsed := watchdog.FormatElapsed(summary.Elapsed)
	logger := logging.WithContext(r.ctx, c.logger)
	if summary.Success {
		outputsink.Success(c.sink, r.def.Name, fmt.Sprintf("%s done in %s", label, elapsed))
		logger.Info("workflow completed",
			logging.String(logging.FieldEventType, "workflow_complete"),
			logging.Duration("elapsed", summary.Elapsed),
		)
	} else {
		diagnostic := ""
		if summary.Failure != nil {
			diagnostic = summary.Failure.Diagnostic()
		}
		entry.FailedStage = summary.FailedStage
		entry.Diagnostic = diagnostic
		c.sink.AddLine(r.def.Name, fmt.Sprintf("%s failed at %s after %s", label, pipeline.Label(summary.FailedStage), elapsed),
			outputsink.ColorRed, outputsink.ColorRed)
		logging.ErrorWithContext(logger, "workflow failed", "workflow_failed",
			logging.String("failed_stage", summary.FailedStage),
			logging.String("diagnostic", diagnostic),
			logging.Any("skipped", summary.Skipped),
			logging.String(logging.FieldErrorHint, "see the red ERROR line in the output"),
		)
	}
}

// afterRun performs the blocking follow-ups of a run off the loop.
func (c *Controller) afterRun(ctx context.Context, r *run, entry journal.Run, summary pipeline.Summary) {
	logger := logging.WithContext(ctx, c.logger)
	if c.journal != nil {
		if _, err := c.journal.Record(ctx, entry); err != nil {
			logging.WarnWithContext(logger, "journal write failed", "journal_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run will be missing from shipit history"),
			)
		}
	}

	var err error
	label := pipeline.Label(r.def.Name)
	if summary.Success {
		err = c.notifier.NotifyWorkflowCompleted(ctx, label, summary.Elapsed, c.simulate)
	} else {
		err = c.notifier.NotifyWorkflowFailed(ctx, label, summary.FailedStage, entry.Diagnostic)
	}
	if err != nil {
		logger.Debug("workflow notification failed", logging.Error(err))
	}

	r.done <- summary
	close(r.done)
}

func (c *Controller) env() *Env {
	return &Env{
		Project:     c.project,
		Tools:       c.tools,
		Exec:        c.runner,
		Classifier:  c.classifier,
		Sink:        c.sink,
		Logger:      c.logger,
		Simulate:    c.simulate,
		Settle:      c.cfg.SettleDelay(),
		Now:         c.now,
		Builds:      maps.Clone(c.builds),
		Reload:      c.reloadFromWorker,
		RecordBuild: c.recordBuild,
	}
}

func (c *Controller) recordBuild(target string, ok bool) {
	key := targetKey(target)
	if err := c.loop.Post(func() { c.builds[key] = ok }); err != nil {
		c.logger.Debug("build result dropped", logging.String("target", target), logging.Error(err))
	}
}

// SetProject loads the project in dir and makes it current. Build results
// from the previous project are forgotten. It is refused while a workflow
// runs.
func (c *Controller) SetProject(ctx context.Context, dir string) (*project.Project, error) {
	if c.guard.Busy() {
		return nil, services.Wrap(services.ErrBusy, "workflow", "project", "a command is already executing", nil)
	}
	p, err := c.load(dir)
	if err != nil {
		outputsink.Error(c.sink, "project", err.Error())
		return nil, err
	}
	var busy error
	if err := c.loop.Call(ctx, func() {
		// A workflow may have been admitted while the project was loading.
		if c.guard.Busy() {
			busy = services.Wrap(services.ErrBusy, "workflow", "project", "a command is already executing", nil)
			return
		}
		c.install(p, true)
	}); err != nil {
		return nil, err
	}
	if busy != nil {
		return nil, busy
	}
	return p, nil
}

// Reload re-reads the current project from disk.
func (c *Controller) Reload(ctx context.Context) (*project.Project, error) {
	current := c.Project(ctx)
	if current == nil {
		return nil, services.Wrap(services.ErrPrecondition, "workflow", "reload", errNoProject.Error(), nil)
	}
	p, err := current.Reload()
	if err != nil {
		outputsink.Error(c.sink, "reload", err.Error())
		return nil, err
	}
	if err := c.loop.Call(ctx, func() { c.install(p, false) }); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Controller) reloadFromWorker(ctx context.Context) (*project.Project, error) {
	return c.Reload(context.WithoutCancel(ctx))
}

// Project returns the current project, or nil.
func (c *Controller) Project(ctx context.Context) *project.Project {
	var p *project.Project
	if err := c.loop.Call(ctx, func() { p = c.project }); err != nil {
		return nil
	}
	return p
}

// BuildSucceeded reports the last verdict for target in this session.
func (c *Controller) BuildSucceeded(ctx context.Context, target string) bool {
	var ok bool
	_ = c.loop.Call(ctx, func() { ok = c.builds[targetKey(target)] })
	return ok
}

// install runs on the loop.
func (c *Controller) install(p *project.Project, resetBuilds bool) {
	c.project = p
	if resetBuilds {
		c.builds = make(map[string]bool)
	}
	c.describe(p)
}

func (c *Controller) describe(p *project.Project) {
	outputsink.Notice(c.sink, ">Project", p.Dir)
	outputsink.Info(c.sink, "Product", p.Version.ProductName)
	outputsink.Info(c.sink, "Version", fmt.Sprintf("%s (%s)", p.Version.ProductVersion, version.Detect(p.Version.ProductVersion)))
	outputsink.Info(c.sink, "Bundle", p.Version.BundleVersion)
	outputsink.Info(c.sink, "Builds", strings.Join(p.Settings.Targets, ","))
	for _, check := range p.Inspect() {
		line := fmt.Sprintf("%s %s", check.Label, check.Path)
		if check.Exists {
			outputsink.Info(c.sink, ".file", line)
		} else {
			c.sink.AddLine("ERROR", line, outputsink.ColorRed, outputsink.ColorRed)
		}
	}
	if c.simulate {
		outputsink.Notice(c.sink, "simulate", "-simulate mode, nothing outside the output will change")
	}
}

// Close waits for pending journal writes and notifications and stops the
// controlling loop. A running workflow should be awaited first.
func (c *Controller) Close() {
	c.background.Wait()
	c.loop.Stop()
}
