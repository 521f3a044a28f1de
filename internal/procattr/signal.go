package procattr

import (
	"errors"
	"os"
	"syscall"
	"time"
)

// SignalGroup delivers sig to every process in p's group. Agent CLIs spawn
// their own helpers (node workers, shells, MCP servers), so signalling only
// the direct child would leave those running.
func SignalGroup(p *os.Process, sig syscall.Signal) error {
	if p == nil {
		return nil
	}
	err := syscall.Kill(-p.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// KillGroup sends SIGKILL to p's process group.
func KillGroup(p *os.Process) error {
	return SignalGroup(p, syscall.SIGKILL)
}

// Escalation reports which signals Terminate delivered.
type Escalation struct {
	Terminated bool
	Killed     bool
}

// Terminate sends SIGTERM to p's group and, if exited has not been closed
// within grace, follows up with SIGKILL. It returns once the process has
// exited or the kill was sent. Reaping stays with the caller.
func Terminate(p *os.Process, grace time.Duration, exited <-chan struct{}) Escalation {
	var esc Escalation
	if p == nil {
		return esc
	}
	select {
	case <-exited:
		return esc
	default:
	}

	esc.Terminated = SignalGroup(p, syscall.SIGTERM) == nil

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
		esc.Killed = KillGroup(p) == nil
	}
	return esc
}
