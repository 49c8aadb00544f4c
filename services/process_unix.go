//go:build unix

package services

import (
	"os/exec"
	"syscall"
)

// configureProcess puts the tool in its own process group so that a timeout
// also kills helpers it spawned (soffice forks soffice.bin).
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
