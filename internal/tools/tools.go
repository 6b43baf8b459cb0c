// Package tools builds the command lines of the external tools shipit drives:
// git, the directory sync tool (robocopy or rsync) and the project's build
// executable. Builders only describe commands; procrun executes them.
package tools

import (
	"path/filepath"
	"strings"

	"shipit/internal/config"
	"shipit/internal/exitcode"
	"shipit/internal/procrun"
)

// Prefixes used for command output lines.
const (
	PrefixGit   = "git"
	PrefixCopy  = "copy"
	PrefixBuild = "build"
)

// Set names the executables for one session.
type Set struct {
	Git         string
	SyncTool    string
	SyncBinary  string
	BuildBinary string
}

// FromConfig derives a tool set from the application config.
func FromConfig(cfg *config.Config) Set {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return Set{
		Git:         cfg.Tools.Git,
		SyncTool:    cfg.Tools.SyncTool,
		SyncBinary:  cfg.SyncBinary(),
		BuildBinary: cfg.Tools.BuildBinary,
	}
}

func (s Set) git(dir string, args ...string) procrun.Command {
	exe := s.Git
	if exe == "" {
		exe = "git"
	}
	return procrun.Command{
		Kind:       exitcode.KindGit,
		Prefix:     PrefixGit,
		Executable: exe,
		Args:       args,
		Dir:        dir,
	}
}

// GitStatus is "git status".
func (s Set) GitStatus(dir string) procrun.Command {
	return s.git(dir, "status")
}

// GitPull is "git pull".
func (s Set) GitPull(dir string) procrun.Command {
	return s.git(dir, "pull")
}

// GitAdd stages paths. In simulate mode git only lists what it would add.
func (s Set) GitAdd(dir string, simulate bool, paths ...string) procrun.Command {
	args := []string{"add"}
	if simulate {
		args = append(args, "--dry-run")
	}
	args = append(args, "--")
	args = append(args, paths...)
	return s.git(dir, args...)
}

// GitCommit commits staged changes with message.
func (s Set) GitCommit(dir, message string, simulate bool) procrun.Command {
	args := []string{"commit", "-m", message}
	if simulate {
		args = append(args, "--dry-run")
	}
	return s.git(dir, args...)
}

// GitTag creates an annotated tag.
func (s Set) GitTag(dir, tag, message string) procrun.Command {
	return s.git(dir, "tag", "-a", tag, "-m", message)
}

// GitPush pushes the current branch, or the tags when tags is set.
func (s Set) GitPush(dir string, tags, simulate bool) procrun.Command {
	args := []string{"push"}
	if tags {
		args = append(args, "--tags")
	}
	if simulate {
		args = append(args, "--dry-run")
	}
	return s.git(dir, args...)
}

// GitRevert discards working tree changes of files.
func (s Set) GitRevert(dir string, files ...string) procrun.Command {
	args := append([]string{"checkout", "--"}, files...)
	return s.git(dir, args...)
}

// Mirror makes dst an exact copy of src using the configured sync tool. In
// simulate mode the tool only lists what it would do.
func (s Set) Mirror(src, dst string, simulate bool) (procrun.Command, procrun.LineFilter) {
	exe := s.SyncBinary
	if exe == "" {
		exe = s.SyncTool
	}
	if strings.EqualFold(s.SyncTool, config.SyncToolRsync) {
		args := []string{"-a", "--delete", "--itemize-changes"}
		if simulate {
			args = append(args, "--dry-run")
		}
		args = append(args, withTrailingSeparator(src), withTrailingSeparator(dst))
		return procrun.Command{
			Kind:       exitcode.KindRsync,
			Prefix:     PrefixCopy,
			Executable: exe,
			Args:       args,
		}, procrun.SyncLineFilter
	}

	args := []string{src, dst, "*.*", "/S", "/E", "/V", "/PURGE", "/NP"}
	if simulate {
		args = append(args, "/L")
	}
	return procrun.Command{
		Kind:       exitcode.KindMirror,
		Prefix:     PrefixCopy,
		Executable: exe,
		Args:       args,
	}, procrun.SyncLineFilter
}

func withTrailingSeparator(path string) string {
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return path
	}
	return path + string(filepath.Separator)
}

// Build runs the project build executable for one target. An empty
// executable falls back to the configured build binary.
func (s Set) Build(executable string, args []string, dir string) procrun.Command {
	if executable == "" {
		executable = s.BuildBinary
	}
	return procrun.Command{
		Kind:       exitcode.KindBuild,
		Prefix:     PrefixBuild,
		Executable: executable,
		Args:       append([]string(nil), args...),
		Dir:        dir,
	}
}
