package stage

import (
	"context"
	"fmt"
	"os"

	"shipit/internal/exitcode"
	"shipit/internal/procrun"
	"shipit/internal/services"
)

// Executor starts external commands. *procrun.Runner satisfies it.
type Executor interface {
	Execute(ctx context.Context, cmd procrun.Command, opts procrun.Options) <-chan procrun.Exit
}

// Process is a stage that runs one external command and classifies its exit
// code.
type Process struct {
	name       string
	cmd        procrun.Command
	exec       Executor
	classifier *exitcode.Classifier
	filter     procrun.LineFilter
	onLine     func(prefix, line string)
	sourceDir  string
}

// ProcessOption configures a Process stage.
type ProcessOption func(*Process)

// WithFilter installs a line filter for the command output.
func WithFilter(filter procrun.LineFilter) ProcessOption {
	return func(p *Process) { p.filter = filter }
}

// WithLineHandler receives every forwarded output line.
func WithLineHandler(fn func(prefix, line string)) ProcessOption {
	return func(p *Process) { p.onLine = fn }
}

// WithSourceDir refuses to start the command when dir is not an existing
// directory. It is checked when the stage runs, not when it is planned.
func WithSourceDir(dir string) ProcessOption {
	return func(p *Process) { p.sourceDir = dir }
}

// NewProcess builds a process stage.
func NewProcess(name string, cmd procrun.Command, exec Executor, classifier *exitcode.Classifier, opts ...ProcessOption) *Process {
	if classifier == nil {
		classifier = exitcode.NewClassifier()
	}
	p := &Process{name: name, cmd: cmd, exec: exec, classifier: classifier}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Process) Name() string { return p.name }

// Command returns the command this stage runs.
func (p *Process) Command() procrun.Command { return p.cmd }

func (p *Process) Run(ctx context.Context, done func(Result)) {
	finish := once(done)
	if p.exec == nil {
		finish(Result{
			Stage:   p.name,
			Failure: FailureStart,
			Note:    "no process executor configured",
			Err:     services.Wrap(services.ErrStartFailure, p.name, "start", "no process executor configured", nil),
		})
		return
	}
	if p.sourceDir != "" {
		if info, err := os.Stat(p.sourceDir); err != nil || !info.IsDir() {
			note := "can not copy, source directory not found: " + p.sourceDir
			finish(Result{
				Stage:   p.name,
				Failure: FailureStart,
				Note:    note,
				Err:     services.Wrap(services.ErrStartFailure, p.name, "start", note, err),
			})
			return
		}
	}
	pending := p.exec.Execute(ctx, p.cmd, procrun.Options{Filter: p.filter, OnLine: p.onLine})
	go func() {
		finish(p.result(<-pending))
	}()
}

func (p *Process) result(exit procrun.Exit) Result {
	res := Result{Stage: p.name, Elapsed: exit.Elapsed}
	if !exit.Started {
		res.Failure = FailureStart
		res.Note = services.Describe(exit.StartErr)
		res.Err = services.Wrap(services.ErrStartFailure, p.name, "start", p.cmd.Executable, exit.StartErr)
		return res
	}

	code := exit.Code
	res.ExitCode = &code
	verdict := p.classifier.Classify(p.cmd.Kind, code)
	res.Success = verdict.Success
	res.Note = verdict.Note
	if exit.ScanErr != nil {
		res.Success = false
		res.Note = services.Describe(exit.ScanErr)
	}
	if !res.Success {
		res.Failure = FailureExecution
		res.Err = services.Wrap(services.ErrExecution, p.name, "run", fmt.Sprintf("%s exited with %d", p.cmd.Executable, code), exit.ScanErr)
	}
	return res
}
