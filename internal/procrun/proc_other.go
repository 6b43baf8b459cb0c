//go:build !unix

package procrun

import (
	"os/exec"
	"time"
)

func configureProcessGroup(*exec.Cmd) {}

func terminateGroup(cmd *exec.Cmd, _ time.Duration, _ <-chan struct{}) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
