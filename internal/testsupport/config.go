package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"shipit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Workflow.KillGraceSeconds = 1
	cfgVal.Workflow.SettleSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSyncTool selects the directory sync tool.
func WithSyncTool(tool string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tools.SyncTool = tool
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// points the tool configuration at them. If names is empty, git, the sync
// tool and the default build tool are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Tools.Git, b.cfg.SyncBinary(), b.cfg.Tools.BuildBinary}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, binDir, filepath.Base(name), "exit 0\n")
		}
		b.cfg.Tools.Git = filepath.Join(binDir, filepath.Base(b.cfg.Tools.Git))
		b.cfg.Tools.SyncBinary = filepath.Join(binDir, filepath.Base(b.cfg.SyncBinary()))
		b.cfg.Tools.BuildBinary = filepath.Join(binDir, filepath.Base(b.cfg.Tools.BuildBinary))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WriteScript writes an executable /bin/sh script named name into dir and
// returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	target := filepath.Join(dir, name)
	script := []byte("#!/bin/sh\n" + body)
	if err := os.WriteFile(target, script, 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}
