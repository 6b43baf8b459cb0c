package project

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"

	"shipit/internal/fsops"
)

// SettingsFile is the name of the settings file at the project root.
const SettingsFile = "shipit.yaml"

// Defaults applied when the settings file leaves a field empty.
const (
	DefaultVersionFile  = "ProjectSettings/ProjectSettings.asset"
	DefaultReleaseNotes = "releasenotes.txt"
	DefaultWebGLTarget  = "WebGL"
)

// DefaultCleanDirs are removed by the clean workflow.
var DefaultCleanDirs = []string{"Library", "Temp", "Obj"}

var (
	// ErrNotProject reports a directory without a settings file.
	ErrNotProject = errors.New("not a shipit project")
	// ErrInvalidSettings reports a settings or version file that cannot be used.
	ErrInvalidSettings = errors.New("invalid project settings")
)

// CopyFile maps a file in the secret keys folder to its place in the project.
type CopyFile struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Build describes how a single target is built.
type Build struct {
	Executable string `yaml:"executable"`
	// Arguments is a shell-style string. {target} and {project} are replaced
	// before it is split.
	Arguments string `yaml:"arguments"`
}

// WebGL configures post-processing of a WebGL build.
type WebGL struct {
	Target      string `yaml:"target"`
	BuildDir    string `yaml:"build_dir"`
	DistDir     string `yaml:"dist_dir"`
	HistoryJSON string `yaml:"history_json"`
	HistoryHTML string `yaml:"history_html"`
	HistoryURL  string `yaml:"history_url"`
}

// Enabled reports whether post-processing is configured.
func (w *WebGL) Enabled() bool {
	return w != nil && w.BuildDir != "" && w.DistDir != "" && w.HistoryJSON != ""
}

// Settings is the content of shipit.yaml.
type Settings struct {
	Targets       []string   `yaml:"targets"`
	SecretKeysDir string     `yaml:"secret_keys_dir"`
	CopyFiles     []CopyFile `yaml:"copy_files"`
	RevertFiles   []string   `yaml:"revert_files"`
	CleanDirs     []string   `yaml:"clean_dirs"`
	Build         Build      `yaml:"build"`
	VersionFile   string     `yaml:"version_file"`
	BuildInfoFile string     `yaml:"build_info_file"`
	ReleaseNotes  string     `yaml:"release_notes"`
	DeliveryTrack string     `yaml:"delivery_track"`
	WebGL         *WebGL     `yaml:"webgl"`
}

// ParseSettings decodes and normalizes a settings payload.
func ParseSettings(data []byte) (Settings, error) {
	var s Settings
	if len(bytes.TrimSpace(data)) == 0 {
		return s, fmt.Errorf("%w: settings file is empty", ErrInvalidSettings)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return s, fmt.Errorf("%w: decode %s: %w", ErrInvalidSettings, SettingsFile, err)
	}
	s.normalize()
	if err := s.validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Settings) normalize() {
	targets := s.Targets[:0]
	seen := make(map[string]struct{}, len(s.Targets))
	for _, t := range s.Targets {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(t)]; dup {
			continue
		}
		seen[strings.ToLower(t)] = struct{}{}
		targets = append(targets, t)
	}
	s.Targets = targets
	if strings.TrimSpace(s.VersionFile) == "" {
		s.VersionFile = DefaultVersionFile
	}
	if strings.TrimSpace(s.ReleaseNotes) == "" {
		s.ReleaseNotes = DefaultReleaseNotes
	}
	if len(s.CleanDirs) == 0 {
		s.CleanDirs = append([]string(nil), DefaultCleanDirs...)
	}
	if s.WebGL != nil && strings.TrimSpace(s.WebGL.Target) == "" {
		s.WebGL.Target = DefaultWebGLTarget
	}
}

func (s *Settings) validate() error {
	for i, cf := range s.CopyFiles {
		if strings.TrimSpace(cf.From) == "" || strings.TrimSpace(cf.To) == "" {
			return fmt.Errorf("%w: copy_files[%d] needs both from and to", ErrInvalidSettings, i)
		}
	}
	if len(s.CopyFiles) > 0 && strings.TrimSpace(s.SecretKeysDir) == "" {
		return fmt.Errorf("%w: copy_files requires secret_keys_dir", ErrInvalidSettings)
	}
	for _, dir := range s.CleanDirs {
		if filepath.IsAbs(dir) || strings.HasPrefix(filepath.Clean(dir), "..") {
			return fmt.Errorf("%w: clean_dirs entry %q must stay inside the project", ErrInvalidSettings, dir)
		}
	}
	if _, err := shellwords.Parse(s.Build.Arguments); err != nil {
		return fmt.Errorf("%w: build.arguments: %w", ErrInvalidSettings, err)
	}
	return nil
}

// HasTarget reports whether name is a configured build target.
func (s Settings) HasTarget(name string) bool {
	for _, t := range s.Targets {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// BuildArgs expands the argument template for target and splits it like a
// shell would.
func (s Settings) BuildArgs(target, projectDir string) ([]string, error) {
	expanded := strings.NewReplacer("{target}", target, "{project}", projectDir).Replace(s.Build.Arguments)
	args, err := shellwords.Parse(expanded)
	if err != nil {
		return nil, fmt.Errorf("%w: build.arguments: %w", ErrInvalidSettings, err)
	}
	return args, nil
}

// Project is a loaded project directory.
type Project struct {
	Dir      string
	Settings Settings
	Version  VersionInfo
}

// Load reads shipit.yaml and the version file of the project in dir.
func Load(dir string) (*Project, error) {
	abs, err := filepath.Abs(strings.TrimSpace(dir))
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", ErrNotProject, dir, err)
	}
	data, err := os.ReadFile(filepath.Join(abs, SettingsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s has no %s", ErrNotProject, abs, SettingsFile)
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidSettings, SettingsFile, err)
	}
	settings, err := ParseSettings(data)
	if err != nil {
		return nil, err
	}
	p := &Project{Dir: abs, Settings: settings}
	info, err := ReadVersionFile(p.VersionFilePath())
	if err != nil {
		return nil, err
	}
	p.Version = info
	return p, nil
}

// Reload re-reads settings and version from disk.
func (p *Project) Reload() (*Project, error) {
	return Load(p.Dir)
}

// Path resolves rel against the project directory.
func (p *Project) Path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Dir, filepath.FromSlash(rel))
}

// VersionFilePath is the absolute path of the version file.
func (p *Project) VersionFilePath() string {
	return p.Path(p.Settings.VersionFile)
}

// BuildInfoPath is the absolute path of the build info file, or empty.
func (p *Project) BuildInfoPath() string {
	return p.Path(p.Settings.BuildInfoFile)
}

// ReleaseNotesPath is the absolute path of the release notes file.
func (p *Project) ReleaseNotesPath() string {
	return p.Path(p.Settings.ReleaseNotes)
}

// SecretKeysDir is the absolute path of the secret keys folder.
func (p *Project) SecretKeysDir() string {
	return p.Path(p.Settings.SecretKeysDir)
}

// CopyPairs returns the secret file copies, source in the secret keys folder
// and destination in the project.
func (p *Project) CopyPairs() []fsops.Pair {
	secret := p.SecretKeysDir()
	pairs := make([]fsops.Pair, 0, len(p.Settings.CopyFiles))
	for _, cf := range p.Settings.CopyFiles {
		from := cf.From
		if !filepath.IsAbs(from) {
			from = filepath.Join(secret, filepath.FromSlash(from))
		}
		pairs = append(pairs, fsops.Pair{From: from, To: p.Path(cf.To)})
	}
	return pairs
}

// CleanDirs returns the absolute directories removed by the clean workflow.
func (p *Project) CleanDirs() []string {
	dirs := make([]string, 0, len(p.Settings.CleanDirs))
	for _, d := range p.Settings.CleanDirs {
		dirs = append(dirs, p.Path(d))
	}
	return dirs
}

// WebGL returns the post-processing block with paths resolved, or nil.
func (p *Project) WebGL() *WebGL {
	w := p.Settings.WebGL
	if !w.Enabled() {
		return nil
	}
	return &WebGL{
		Target:      w.Target,
		BuildDir:    p.Path(w.BuildDir),
		DistDir:     p.Path(w.DistDir),
		HistoryJSON: p.Path(w.HistoryJSON),
		HistoryHTML: p.Path(w.HistoryHTML),
		HistoryURL:  w.HistoryURL,
	}
}

// HasPostProcessing reports whether the WebGL target is selected and
// post-processing is configured for it.
func (p *Project) HasPostProcessing() bool {
	w := p.WebGL()
	return w != nil && p.Settings.HasTarget(w.Target)
}
