package project

import (
	"fmt"
	"os"
)

// Check is one file the workflows depend on.
type Check struct {
	Label  string
	Path   string
	Exists bool
}

// Inspect lists the files the workflows will read or modify and whether they
// exist, so the operator can spot a broken setup before starting a build.
func (p *Project) Inspect() []Check {
	var checks []Check
	add := func(label, path string) {
		if path == "" {
			return
		}
		_, err := os.Stat(path)
		checks = append(checks, Check{Label: label, Path: path, Exists: err == nil})
	}

	add("version", p.VersionFilePath())
	add("update", p.BuildInfoPath())
	for _, pair := range p.CopyPairs() {
		add(fmt.Sprintf("copy to %s", pair.To), pair.From)
	}
	for _, f := range p.Settings.RevertFiles {
		add("git revert", p.Path(f))
	}
	if w := p.WebGL(); w != nil {
		add("webgl html", w.HistoryHTML)
		add("webgl build", w.BuildDir)
	}
	return checks
}

// Summary is the one-line description shown after loading a project.
func (p *Project) Summary() string {
	return fmt.Sprintf("%s version %s bundle %s", p.Version.ProductName, p.Version.ProductVersion, p.Version.BundleVersion)
}
