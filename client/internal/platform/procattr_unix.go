//go:build !windows

package platform

import (
	"os/exec"
	"syscall"
)

// setDetachedProcAttr runs the started program in a new session so that it
// outlives the launcher.
func setDetachedProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
