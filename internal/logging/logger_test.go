package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shipit/internal/config"
	"shipit/internal/logging"
	"shipit/internal/services"
)

func TestNewFromConfigWritesToLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "shipit.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format: "console",
		Level:  "info",
		Path:   logPath,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerFoldsSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "subject.log")
	logger, err := logging.New(logging.Options{
		Format: "console",
		Level:  "info",
		Path:   logPath,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithWorkflow(context.Background(), "build")
	ctx = services.WithStage(ctx, "git_revert")
	ctx = services.WithRunID(ctx, "run-1")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "pipeline")).Info("stage started")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "pipeline · build · git_revert: stage started") {
		t.Fatalf("expected folded subject, got %q", line)
	}
	if !strings.Contains(line, "run_id=run-1") {
		t.Fatalf("expected run id attribute, got %q", line)
	}
	if strings.Contains(line, "workflow=") {
		t.Fatalf("expected workflow to be folded into subject, got %q", line)
	}
}

func TestConsoleLoggerFlattensGroups(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "groups.log")
	logger, err := logging.New(logging.Options{Path: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.WithGroup("mirror").With(logging.Int("files", 3)).Warn("copy finished", logging.String("dir", "build dir"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{" WARN  copy finished", "mirror.files=3", `mirror.dir="build dir"`} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format: "json",
		Level:  "info",
		Path:   logPath,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("stall", logging.String(logging.FieldEventType, "watchdog_notice"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("decode record: %v (%q)", err, content)
	}
	if record["level"] != "warn" || record["msg"] != "stall" {
		t.Fatalf("unexpected record: %#v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", record)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Path: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "copy was not perfect", "sync_partial")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, fragment := range []string{"event_type=sync_partial", "error_hint=", "impact="} {
		if !strings.Contains(string(content), fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
}
