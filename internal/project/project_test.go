package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shipit/internal/testsupport"
)

const sampleAsset = `%YAML 1.1
%TAG !u! tag:unity3d.com,2011:
--- !u!129 &1
PlayerSettings:
  companyName: Example
  productName: Space Pigs
  bundleVersion: 2026.01.15.41
  AndroidBundleVersionCode: 41
  AndroidMinSdkVersion: 24
`

const sampleSettings = `targets: [Android, WebGL, android]
secret_keys_dir: ../secrets
copy_files:
  - from: google-services.json
    to: Assets/google-services.json
revert_files:
  - Assets/google-services.json
build:
  executable: Unity
  arguments: -batchmode -quit -projectPath "{project}" -buildTarget {target}
build_info_file: Assets/BuildProperties.cs
delivery_track: alpha
webgl:
  build_dir: build/WebGL
  dist_dir: /srv/www/pigs
  history_json: build/history.json
  history_html: build/index.html
  history_url: https://example.test/pigs/
`

func writeProject(t *testing.T, settings string) string {
	t.Helper()
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, SettingsFile), settings)
	testsupport.WriteFile(t, filepath.Join(dir, DefaultVersionFile), sampleAsset)
	return dir
}

func TestLoadProject(t *testing.T) {
	dir := writeProject(t, sampleSettings)
	p, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := strings.Join(p.Settings.Targets, ","); got != "Android,WebGL" {
		t.Fatalf("targets not deduplicated: %q", got)
	}
	if p.Version.ProductName != "Space Pigs" || p.Version.ProductVersion != "2026.01.15.41" || p.Version.BundleVersion != "41" {
		t.Fatalf("unexpected version %+v", p.Version)
	}
	if strings.Join(p.Settings.CleanDirs, ",") != "Library,Temp,Obj" {
		t.Fatalf("unexpected clean dirs %v", p.Settings.CleanDirs)
	}
	pairs := p.CopyPairs()
	if len(pairs) != 1 || pairs[0].From != filepath.Join(dir, "..", "secrets", "google-services.json") {
		t.Fatalf("unexpected copy pairs %+v", pairs)
	}
	if !p.HasPostProcessing() || p.WebGL().DistDir != "/srv/www/pigs" {
		t.Fatalf("unexpected webgl %+v", p.WebGL())
	}
	args, err := p.Settings.BuildArgs("Android", "/work/my project")
	if err != nil {
		t.Fatalf("BuildArgs: %v", err)
	}
	want := []string{"-batchmode", "-quit", "-projectPath", "/work/my project", "-buildTarget", "Android"}
	if strings.Join(args, "|") != strings.Join(want, "|") {
		t.Fatalf("args = %q, want %q", args, want)
	}
}

func TestLoadReportsTypedErrors(t *testing.T) {
	if _, err := Load(t.TempDir()); !errors.Is(err, ErrNotProject) {
		t.Fatalf("expected ErrNotProject, got %v", err)
	}

	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, SettingsFile), "targets: [Android]\n")
	if _, err := Load(dir); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings for missing version file, got %v", err)
	}

	bad := writeProject(t, "targets: [Android]\nunknown_key: 1\n")
	if _, err := Load(bad); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings for unknown key, got %v", err)
	}

	noSecret := writeProject(t, "copy_files:\n  - from: a\n    to: b\n")
	if _, err := Load(noSecret); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings without secret dir, got %v", err)
	}

	quotes := writeProject(t, "build:\n  arguments: '-x \"unterminated'\n")
	if _, err := Load(quotes); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings for bad arguments, got %v", err)
	}
}

func TestLoadWithoutTargetsSucceeds(t *testing.T) {
	dir := writeProject(t, "delivery_track: beta\n")
	p, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Settings.Targets) != 0 {
		t.Fatalf("expected no targets, got %v", p.Settings.Targets)
	}
}

func TestWriteVersionFile(t *testing.T) {
	dir := writeProject(t, sampleSettings)
	path := filepath.Join(dir, DefaultVersionFile)

	changed, err := WriteVersionFile(path, "2026.03.07.42", "42")
	if err != nil || !changed {
		t.Fatalf("WriteVersionFile changed=%v err=%v", changed, err)
	}
	info, err := ReadVersionFile(path)
	if err != nil {
		t.Fatalf("ReadVersionFile: %v", err)
	}
	if info.ProductVersion != "2026.03.07.42" || info.BundleVersion != "42" || info.ProductName != "Space Pigs" {
		t.Fatalf("unexpected info %+v", info)
	}
	content := testsupport.ReadFile(t, path)
	if !strings.Contains(content, "AndroidMinSdkVersion: 24") || !strings.HasPrefix(content, "%YAML 1.1") {
		t.Fatalf("unrelated content was altered:\n%s", content)
	}

	changed, err = WriteVersionFile(path, "2026.03.07.42", "42")
	if err != nil || changed {
		t.Fatalf("expected no change on identical values, changed=%v err=%v", changed, err)
	}
}

func TestWriteVersionFileKeepsCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ProjectSettings.asset")
	testsupport.WriteFile(t, path, strings.ReplaceAll(sampleAsset, "\n", "\r\n"))
	if _, err := WriteVersionFile(path, "1.0.2", "2"); err != nil {
		t.Fatalf("WriteVersionFile: %v", err)
	}
	content := testsupport.ReadFile(t, path)
	if !strings.Contains(content, "  bundleVersion: 1.0.2\r\n") || !strings.Contains(content, "AndroidBundleVersionCode: 2\r\n") {
		t.Fatalf("line endings not preserved: %q", content)
	}
}

func TestUpdateBuildInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BuildProperties.cs")
	testsupport.WriteFile(t, path, `public static class BuildProperties
{
    public const string CompiledOnDate = "2020-01-01 00:00";
    public const string BundleVersion = "1";
}
`)
	compiled := time.Date(2026, 3, 7, 10, 30, 0, 0, time.UTC)
	changed, err := UpdateBuildInfo(path, compiled, "42")
	if err != nil || !changed {
		t.Fatalf("UpdateBuildInfo changed=%v err=%v", changed, err)
	}
	content := testsupport.ReadFile(t, path)
	if !strings.Contains(content, `CompiledOnDate = "2026-03-07 10:30"`) || !strings.Contains(content, `BundleVersion = "42"`) {
		t.Fatalf("unexpected content:\n%s", content)
	}

	other := filepath.Join(t.TempDir(), "Other.cs")
	testsupport.WriteFile(t, other, "class X {}\n")
	if _, err := UpdateBuildInfo(other, compiled, "42"); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
}

func TestInspect(t *testing.T) {
	dir := writeProject(t, sampleSettings)
	if err := os.MkdirAll(filepath.Join(dir, "build", "WebGL"), 0o755); err != nil {
		t.Fatal(err)
	}
	p, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	checks := p.Inspect()
	found := map[string]bool{}
	for _, c := range checks {
		found[c.Label] = c.Exists
	}
	if !found["version"] || !found["webgl build"] {
		t.Fatalf("expected version and webgl build to exist: %+v", checks)
	}
	if found["update"] {
		t.Fatalf("build info file should be reported missing: %+v", checks)
	}
	if p.Summary() != "Space Pigs version 2026.01.15.41 bundle 41" {
		t.Fatalf("unexpected summary %q", p.Summary())
	}
}
