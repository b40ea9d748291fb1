//go:build !windows

package tools

import (
	"os/exec"
	"syscall"
)

// configureProcAttr puts the child in its own process group so cancellation
// can take down the whole tree.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateProcessTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	// Negative pid signals the whole process group.
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
