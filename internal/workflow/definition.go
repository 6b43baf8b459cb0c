package workflow

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"shipit/internal/exitcode"
	"shipit/internal/outputsink"
	"shipit/internal/pipeline"
	"shipit/internal/procrun"
	"shipit/internal/project"
	"shipit/internal/stage"
	"shipit/internal/tools"
)

// Env is the context a Definition plans against. It is assembled on the
// controlling loop at admission time.
type Env struct {
	Project    *project.Project
	Tools      tools.Set
	Exec       stage.Executor
	Classifier *exitcode.Classifier
	Sink       outputsink.Sink
	Logger     *slog.Logger
	Simulate   bool
	// Settle is how long pull waits before reloading project settings.
	Settle time.Duration
	Now    func() time.Time
	// Builds holds per-target build verdicts from this session, keyed by
	// lower-case target name.
	Builds map[string]bool
	// Reload re-reads the project and installs it for the session. Safe to
	// call from a stage worker.
	Reload func(ctx context.Context) (*project.Project, error)
	// RecordBuild stores a target verdict. Safe to call from a stage worker.
	RecordBuild func(target string, ok bool)
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) process(name string, cmd procrun.Command, opts ...stage.ProcessOption) stage.Stage {
	return stage.NewProcess(name, cmd, e.Exec, e.Classifier, opts...)
}

// command runs cmd, or only prints it when simulating. Use it for commands
// that have no dry-run mode of their own.
func (e *Env) command(name string, cmd procrun.Command) stage.Stage {
	if !e.Simulate {
		return e.process(name, cmd)
	}
	sink := e.Sink
	return stage.NewLocal(name, func(context.Context) (stage.Outcome, error) {
		outputsink.Info(sink, cmd.DisplayPrefix(), "-"+cmd.String())
		return stage.Outcome{Note: "simulated"}, nil
	})
}

// Definition describes one workflow.
type Definition struct {
	Name string
	// Label is the activity shown in the status line while the workflow runs.
	Label       string
	Description string
	Plan        func(env *Env) ([]pipeline.Step, error)
}

var catalog = []Definition{
	{Name: "status", Label: "Querying", Description: "Show the git working tree status", Plan: planStatus},
	{Name: "pull", Label: "Executing", Description: "Pull from the remote and reload project settings", Plan: planPull},
	{Name: "update", Label: "Updating", Description: "Bump product and bundle versions", Plan: planUpdate},
	{Name: "push", Label: "Executing", Description: "Commit, tag and push the version change", Plan: planPush},
	{Name: "build", Label: "Building", Description: "Build every target with secret files staged", Plan: planBuild},
	{Name: "postprocess", Label: "Executing", Description: "Publish the WebGL build and its history", Plan: planPostprocess},
	{Name: "clean", Label: "Cleaning", Description: "Delete generated project folders", Plan: planClean},
	{Name: "secrets", Label: "Copying", Description: "Copy project secret files back to the secret keys folder", Plan: planSecrets},
}

var aliases = map[string]string{
	"post": "postprocess",
}

// Aliases returns the alternative names accepted for d.
func (d Definition) Aliases() []string {
	var out []string
	for alias, name := range aliases {
		if name == d.Name {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// Catalog returns every workflow in menu order.
func Catalog() []Definition {
	return append([]Definition(nil), catalog...)
}

// Lookup finds a workflow by name or alias, ignoring case.
func Lookup(name string) (Definition, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	for _, def := range catalog {
		if def.Name == key {
			return def, true
		}
	}
	return Definition{}, false
}
