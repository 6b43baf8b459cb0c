package workflow

import (
	"context"
	"fmt"
	"strings"

	"shipit/internal/fsops"
	"shipit/internal/pipeline"
	"shipit/internal/project"
	"shipit/internal/stage"
	"shipit/internal/version"
)

func planStatus(env *Env) ([]pipeline.Step, error) {
	return []pipeline.Step{
		{Stage: env.process("git_status", env.Tools.GitStatus(env.Project.Dir))},
	}, nil
}

func planPull(env *Env) ([]pipeline.Step, error) {
	return []pipeline.Step{
		{Stage: env.process("git_pull", env.Tools.GitPull(env.Project.Dir))},
		// git may still be flushing its output when it exits.
		{Stage: stage.Wait("settle", env.Settle)},
		{Stage: stage.NewLocal("reload", reloadAction(env))},
	}, nil
}

func planUpdate(env *Env) ([]pipeline.Step, error) {
	p := env.Project
	if _, err := version.NextBundle(p.Version.BundleVersion); err != nil {
		return nil, fmt.Errorf("bundle version %q in %s is not a number", p.Version.BundleVersion, p.Settings.VersionFile)
	}
	return []pipeline.Step{
		{Stage: stage.NewLocal("update", updateAction(env))},
	}, nil
}

func planPush(env *Env) ([]pipeline.Step, error) {
	p := env.Project
	product := p.Version.ProductVersion
	if strings.TrimSpace(product) == "" {
		return nil, fmt.Errorf("product version is missing in %s", p.Settings.VersionFile)
	}
	message := version.CommitMessage(product, p.Version.BundleVersion)
	tag := version.Tag(product)

	paths := []string{p.Settings.VersionFile}
	if p.Settings.BuildInfoFile != "" {
		paths = append(paths, p.Settings.BuildInfoFile)
	}

	return []pipeline.Step{
		{Stage: env.process("git_add", env.Tools.GitAdd(p.Dir, env.Simulate, paths...))},
		{Stage: env.process("git_commit", env.Tools.GitCommit(p.Dir, message, env.Simulate))},
		{Stage: env.command("git_tag", env.Tools.GitTag(p.Dir, tag, message))},
		{Stage: env.process("git_push", env.Tools.GitPush(p.Dir, false, env.Simulate))},
		{Stage: env.process("git_push_tags", env.Tools.GitPush(p.Dir, true, env.Simulate))},
	}, nil
}

func planBuild(env *Env) ([]pipeline.Step, error) {
	p := env.Project
	var steps []pipeline.Step

	if pairs := p.CopyPairs(); len(pairs) > 0 {
		opts := fsops.CopyOptions{Options: env.fsOptions(), CreateDirs: true}
		steps = append(steps, pipeline.Step{Stage: stage.NewLocal("copy_files", func(ctx context.Context) (stage.Outcome, error) {
			return fsops.CopyFiles(ctx, pairs, opts)
		})})
	}

	for _, target := range p.Settings.Targets {
		args, err := p.Settings.BuildArgs(target, p.Dir)
		if err != nil {
			return nil, err
		}
		cmd := env.Tools.Build(p.Settings.Build.Executable, args, p.Dir)
		if cmd.Executable == "" {
			return nil, fmt.Errorf("no build executable configured for %s", target)
		}
		name := "build_" + targetKey(target)
		steps = append(steps, pipeline.Step{Stage: &recordingStage{
			Stage:  env.command(name, cmd),
			target: target,
			record: env.RecordBuild,
		}})
	}

	if files := p.Settings.RevertFiles; len(files) > 0 {
		steps = append(steps, pipeline.Step{
			Stage:     env.command("git_revert", env.Tools.GitRevert(p.Dir, files...)),
			AlwaysRun: true,
		})
	}

	if p.HasPostProcessing() {
		post, err := postSteps(env)
		if err != nil {
			return nil, err
		}
		steps = append(steps, post...)
	}
	return steps, nil
}

func planPostprocess(env *Env) ([]pipeline.Step, error) {
	p := env.Project
	w := p.WebGL()
	if w == nil || !p.HasPostProcessing() {
		target := "WebGL"
		if w != nil {
			target = w.Target
		}
		return nil, fmt.Errorf("%s build is not in selected build targets", target)
	}
	if !env.Simulate && !env.Builds[targetKey(w.Target)] {
		return nil, fmt.Errorf("%s build was not successful, can not post process", w.Target)
	}
	return postSteps(env)
}

func postSteps(env *Env) ([]pipeline.Step, error) {
	w := env.Project.WebGL()
	if w.HistoryURL == "" {
		return nil, fmt.Errorf("webgl history_url is required for the build history")
	}
	cmd, filter := env.Tools.Mirror(w.BuildDir, w.DistDir, env.Simulate)
	return []pipeline.Step{
		{Stage: stage.NewLocal("build_history", historyAction(env, w))},
		{Stage: env.process("mirror", cmd, stage.WithFilter(filter), stage.WithSourceDir(w.BuildDir))},
	}, nil
}

func planClean(env *Env) ([]pipeline.Step, error) {
	dirs := env.Project.CleanDirs()
	opts := env.fsOptions()
	return []pipeline.Step{
		{Stage: stage.NewLocal("clean", func(ctx context.Context) (stage.Outcome, error) {
			return fsops.DeleteDirectories(ctx, dirs, opts)
		})},
	}, nil
}

func planSecrets(env *Env) ([]pipeline.Step, error) {
	pairs := env.Project.CopyPairs()
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no copy_files configured in %s", project.SettingsFile)
	}
	// The secrets workflow runs the copy list backwards: project to folder.
	reversed := make([]fsops.Pair, 0, len(pairs))
	for _, pair := range pairs {
		reversed = append(reversed, fsops.Pair{From: pair.To, To: pair.From})
	}
	opts := fsops.CopyOptions{Options: env.fsOptions(), CreateDirs: true}
	return []pipeline.Step{
		{Stage: stage.NewLocal("copy_secrets", func(ctx context.Context) (stage.Outcome, error) {
			return fsops.CopyFiles(ctx, reversed, opts)
		})},
	}, nil
}

func (e *Env) fsOptions() fsops.Options {
	return fsops.Options{Simulate: e.Simulate, Sink: e.Sink, Logger: e.Logger}
}

func targetKey(target string) string {
	return strings.ToLower(strings.TrimSpace(target))
}

// recordingStage reports the verdict of a build stage before handing it to
// the pipeline.
type recordingStage struct {
	stage.Stage
	target string
	record func(target string, ok bool)
}

func (r *recordingStage) Run(ctx context.Context, done func(stage.Result)) {
	r.Stage.Run(ctx, func(res stage.Result) {
		if r.record != nil {
			r.record(r.target, res.Success)
		}
		done(res)
	})
}
