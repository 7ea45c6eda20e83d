//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// killProcessGroup makes cancellation kill the whole process tree started by cmd,
// so that make or a python driver cannot leave compilers running after a timeout.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
