package preflight

import (
	"context"
	"strings"

	"shipit/internal/config"
	"shipit/internal/project"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config and
// the currently selected project, which may be nil.
func RunAll(ctx context.Context, cfg *config.Config, proj *project.Project) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if proj != nil {
		results = append(results, CheckDirectoryAccess("Project folder", proj.Dir))
		for _, check := range proj.Inspect() {
			results = append(results, CheckFile(check.Label, check.Path, check.Exists))
		}
		if len(proj.Settings.CopyFiles) > 0 {
			results = append(results, CheckDirectoryAccess("Secret keys folder", proj.SecretKeysDir()))
		}
	}

	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		results = append(results, CheckNtfy(ctx, topic))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
