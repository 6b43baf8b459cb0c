//go:build unix

package procrun

import (
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateGroup signals the child's process group with SIGTERM and escalates
// to SIGKILL when the group has not exited within grace.
func terminateGroup(cmd *exec.Cmd, grace time.Duration, exited <-chan struct{}) {
	if cmd.Process == nil {
		return
	}
	pgid := cmd.Process.Pid
	if err := unix.Kill(-pgid, unix.SIGTERM); err != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
		if err := unix.Kill(-pgid, unix.SIGKILL); err != nil {
			_ = cmd.Process.Kill()
		}
	}
}
