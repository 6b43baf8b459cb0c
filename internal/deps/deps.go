package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"shipit/internal/config"
)

// Requirement defines an external tool shipit drives.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		if path != cmd {
			status.Detail = path
		}
		results = append(results, status)
	}
	return results
}

// Requirements lists the tools the workflows need. projectBuild is the
// executable named by the current project's settings; when empty the
// configured default build binary is checked instead.
func Requirements(cfg *config.Config, projectBuild string) []Requirement {
	build := strings.TrimSpace(projectBuild)
	if build == "" {
		build = cfg.Tools.BuildBinary
	}
	return []Requirement{
		{
			Name:        "git",
			Command:     cfg.Tools.Git,
			Description: "Required for status, pull and push",
		},
		{
			Name:        cfg.Tools.SyncTool,
			Command:     cfg.SyncBinary(),
			Description: "Required for WebGL post-processing",
			Optional:    true,
		},
		{
			Name:        "build",
			Command:     build,
			Description: "Required for build",
		},
	}
}

// CheckTools evaluates Requirements for cfg.
func CheckTools(cfg *config.Config, projectBuild string) []Status {
	return CheckBinaries(Requirements(cfg, projectBuild))
}

// Missing returns the required (non-optional) dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
