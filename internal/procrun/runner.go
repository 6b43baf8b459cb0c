package procrun

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"shipit/internal/logging"
	"shipit/internal/outputsink"
)

// DefaultKillGrace is how long a cancelled process group gets to exit after
// SIGTERM before it is killed.
const DefaultKillGrace = 5 * time.Second

const maxLineBytes = 1024 * 1024

// Exit is the outcome of one process execution.
type Exit struct {
	Command  Command
	Started  bool
	StartErr error
	Code     int
	Signaled bool
	Elapsed  time.Duration
	// ScanErr is set when reading output failed. The rest of that stream is
	// discarded and the process is left to finish on its own.
	ScanErr error
}

// Options customizes a single execution.
type Options struct {
	Filter LineFilter
	OnLine func(prefix, line string)
}

// Runner executes commands.
type Runner struct {
	sink      outputsink.Sink
	logger    *slog.Logger
	killGrace time.Duration
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithKillGrace overrides the SIGTERM to SIGKILL grace period.
func WithKillGrace(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.killGrace = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New builds a runner that mirrors output to sink.
func New(sink outputsink.Sink, opts ...Option) *Runner {
	if sink == nil {
		sink = outputsink.Discard
	}
	r := &Runner{
		sink:      sink,
		logger:    logging.NewNop(),
		killGrace: DefaultKillGrace,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logging.String(logging.FieldComponent, "procrun"))
	return r
}

// Execute starts cmd and returns a channel that receives exactly one Exit.
func (r *Runner) Execute(ctx context.Context, cmd Command, opts Options) <-chan Exit {
	done := make(chan Exit, 1)
	go func() {
		done <- r.Run(ctx, cmd, opts)
	}()
	return done
}

// Run executes cmd and blocks until it exits.
func (r *Runner) Run(ctx context.Context, cmd Command, opts Options) Exit {
	if ctx == nil {
		ctx = context.Background()
	}
	prefix := cmd.DisplayPrefix()
	logger := logging.WithContext(ctx, r.logger)
	start := r.now()
	result := Exit{Command: cmd}

	proc := exec.Command(cmd.Executable, cmd.Args...) //nolint:gosec
	proc.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		proc.Env = mergeEnv(os.Environ(), cmd.Env)
	}
	configureProcessGroup(proc)

	r.sink.AddLine(">"+prefix, cmd.String(), outputsink.ColorGray, outputsink.ColorDefault)
	stdout, err := proc.StdoutPipe()
	if err == nil {
		var stderr io.ReadCloser
		stderr, err = proc.StderrPipe()
		if err == nil {
			err = proc.Start()
		}
		if err == nil {
			result = r.supervise(ctx, proc, stdout, stderr, prefix, opts, logger)
			result.Command = cmd
		}
	}
	if err != nil {
		result.StartErr = err
		result.Code = -1
		result.Elapsed = r.now().Sub(start)
		logger.Warn("process start failed",
			logging.String("command", cmd.String()),
			logging.Error(err),
			logging.String(logging.FieldEventType, "process_start_failed"),
			logging.String(logging.FieldErrorHint, "check that the tool is installed and on PATH"),
		)
		r.sink.AddLine(prefix, fmt.Sprintf("could not start %s: %v", cmd.Executable, err), outputsink.ColorRed, outputsink.ColorRed)
		return result
	}

	result.Elapsed = r.now().Sub(start)
	r.sink.AddLine(prefix, fmt.Sprintf("%s exit: %d", cmd.Executable, result.Code), outputsink.ColorGray, outputsink.ColorGray)
	logger.Debug("process exited",
		logging.String("command", cmd.String()),
		logging.Int("exit_code", result.Code),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result
}

func (r *Runner) supervise(ctx context.Context, proc *exec.Cmd, stdout, stderr io.Reader, prefix string, opts Options, logger *slog.Logger) Exit {
	result := Exit{Started: true}
	logger.Debug("process started", logging.Int("pid", proc.Process.Pid))

	stopped := make(chan struct{})
	var cancelWG sync.WaitGroup
	cancelWG.Add(1)
	go func() {
		defer cancelWG.Done()
		select {
		case <-ctx.Done():
			logger.Info("terminating process group", logging.Int("pid", proc.Process.Pid))
			terminateGroup(proc, r.killGrace, stopped)
		case <-stopped:
		}
	}()

	var (
		wg      sync.WaitGroup
		emitMu  sync.Mutex
		scanErr error
		once    sync.Once
	)
	forward := func(line string) {
		if opts.Filter != nil {
			var keep bool
			line, keep = opts.Filter(line)
			if !keep {
				return
			}
		}
		emitMu.Lock()
		defer emitMu.Unlock()
		if opts.OnLine != nil {
			opts.OnLine(prefix, line)
		}
		r.sink.AddLine(prefix, line, outputsink.ColorGray, outputsink.ColorDefault)
	}
	scan := func(rd io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(rd)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() { scanErr = err })
			_, _ = io.Copy(io.Discard, rd)
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	waitErr := proc.Wait()
	close(stopped)
	cancelWG.Wait()

	result.ScanErr = scanErr
	result.Code = proc.ProcessState.ExitCode()
	if result.Code < 0 {
		result.Signaled = true
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		logger.Warn("process wait failed",
			logging.Error(waitErr),
			logging.String(logging.FieldEventType, "process_wait_failed"),
			logging.String(logging.FieldErrorHint, "the process state may be incomplete"),
		)
	}
	return result
}

func mergeEnv(base []string, overrides map[string]string) []string {
	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key := kv
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				key = kv[:i]
				break
			}
		}
		if _, replaced := overrides[key]; replaced {
			continue
		}
		env = append(env, kv)
	}
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}
