//go:build linux

// Package procattr configures agent CLI subprocesses so that the whole
// process tree can be signalled and never outlives the gateway.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set places the child in its own process group and asks the kernel to
// SIGTERM it if the gateway dies first.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
