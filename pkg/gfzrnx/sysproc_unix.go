//go:build !windows

package gfzrnx

import (
	"os/exec"
	"syscall"
)

// setProcessGroup launches the command as new process group so that signals
// like SIGINT are not sent to the child process as well.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}
