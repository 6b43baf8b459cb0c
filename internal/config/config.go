package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Tools names the external executables shipit drives.
type Tools struct {
	Git      string `toml:"git"`
	SyncTool string `toml:"sync_tool"`
	// SyncBinary overrides the executable used for SyncTool. Empty means the
	// tool name itself.
	SyncBinary string `toml:"sync_binary"`
	// BuildBinary is used when a project does not name its own build executable.
	BuildBinary string `toml:"build_binary"`
}

// Workflow contains timing for the stall watchdog and process shutdown.
type Workflow struct {
	WatchIntervalMinutes int `toml:"watch_interval_minutes"`
	TickSeconds          int `toml:"tick_seconds"`
	KillGraceSeconds     int `toml:"kill_grace_seconds"`
	// SettleSeconds is how long the pull workflow waits for git to finish
	// writing before project settings are reloaded.
	SettleSeconds int `toml:"settle_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Output controls the operator-facing line display.
type Output struct {
	Color string `toml:"color"`
}

// Config encapsulates all configuration values for shipit.
//
// Configuration sections by subsystem:
//   - Paths: log and state (journal, lock file) directories
//   - Tools: git, directory sync, and default build executables
//   - Workflow: watchdog interval, tick, kill grace, settle delay
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//   - Output: color mode for the line display
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Output        Output        `toml:"output"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shipit/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shipit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SyncBinary returns the executable implementing the configured sync tool.
func (c *Config) SyncBinary() string {
	if binary := strings.TrimSpace(c.Tools.SyncBinary); binary != "" {
		return binary
	}
	return c.Tools.SyncTool
}

// JournalPath returns the SQLite run journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// LogPath returns the structured log file written when a log directory is set.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "shipit.log")
}

// LockPath returns the cross-process workflow lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "shipit.lock")
}

// WatchInterval returns the stall notification interval.
func (c *Config) WatchInterval() time.Duration {
	return time.Duration(c.Workflow.WatchIntervalMinutes) * time.Minute
}

// TickInterval returns the watchdog tick granularity.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Workflow.TickSeconds) * time.Second
}

// KillGrace returns how long a child process group gets between SIGTERM and SIGKILL.
func (c *Config) KillGrace() time.Duration {
	return time.Duration(c.Workflow.KillGraceSeconds) * time.Second
}

// SettleDelay returns the pause before reloading settings after a pull.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Workflow.SettleSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
