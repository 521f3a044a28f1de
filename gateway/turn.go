package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/bazelment/agentgate/internal/procattr"
	"github.com/bazelment/agentgate/protocol"
)

const (
	readChunkSize = 32 << 10
	lineQueueSize = 64
)

// Summary describes how a turn ended.
type Summary struct {
	TurnID   string
	Provider string
	PID      int
	// Events counts forwarded event frames, excluding [DONE].
	Events     int
	ExitCode   int
	Stderr     string
	Cancelled  bool
	TimedOut   bool
	Escalation procattr.Escalation
	// DroppedLines counts stdout lines over MaxLineBytes.
	DroppedLines int
	// Orphaned is set when descendants kept the output open after the CLI
	// exited and the process group was killed.
	Orphaned bool
	Duration time.Duration
	// Err is a *SpawnError or *RuntimeError when the CLI failed.
	Err error
}

type waitResult struct {
	exitCode int
	err      error
}

// Run spawns the CLI and streams its events into sink until the process
// exits. Cancelling ctx means the client is gone: the process is
// terminated and no further frames are written. Run returns only after the
// process has been reaped.
func (t *Turn) Run(ctx context.Context, sink FrameSink) Summary {
	g := t.gw
	name := t.Provider.Descriptor().Name
	logger := g.logger.With("turn_id", t.ID, "provider", name)
	start := time.Now()
	sum := Summary{TurnID: t.ID, Provider: name}

	out := newEventStream(sink)
	defer out.Close()

	cmd := exec.Command(t.Spec.Binary, t.Spec.Args...)
	cmd.Env = t.Spec.Environ()
	cmd.Dir = t.Spec.Dir
	procattr.Set(cmd)

	// Wait must not depend on the readers: a descendant can hold the
	// output open after the CLI itself exited.
	p, err := openPipes(cmd)
	if err == nil {
		err = cmd.Start()
		p.closeWriters()
		if err == nil {
			defer p.closeReaders()
			return t.stream(ctx, cmd, p, out, sum, start)
		}
		p.closeReaders()
	}

	sum.Err = &SpawnError{Provider: name, Binary: t.Spec.Binary, Cause: err}
	sum.Duration = time.Since(start)
	logger.Error("spawn failed", "binary", t.Spec.Binary, "error", err)
	out.Send(protocol.Error{Message: sum.Err.Error()})
	return sum
}

// pipes holds the parent and child ends of the CLI's stdout and stderr.
type pipes struct {
	stdoutR, stdoutW *os.File
	stderrR, stderrW *os.File
}

func openPipes(cmd *exec.Cmd) (*pipes, error) {
	p := &pipes{}
	var err error
	if p.stdoutR, p.stdoutW, err = os.Pipe(); err != nil {
		return p, err
	}
	if p.stderrR, p.stderrW, err = os.Pipe(); err != nil {
		p.closeWriters()
		p.closeReaders()
		return p, err
	}
	cmd.Stdout = p.stdoutW
	cmd.Stderr = p.stderrW
	return p, nil
}

func (p *pipes) closeWriters() {
	closeFile(p.stdoutW)
	closeFile(p.stderrW)
}

func (p *pipes) closeReaders() {
	closeFile(p.stdoutR)
	closeFile(p.stderrR)
}

func closeFile(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}

func (t *Turn) stream(ctx context.Context, cmd *exec.Cmd, p *pipes, out *eventStream, sum Summary, start time.Time) Summary {
	g := t.gw
	logger := g.logger.With("turn_id", t.ID, "provider", sum.Provider)
	sum.PID = cmd.Process.Pid
	logger.Info("turn started", "pid", sum.PID, "binary", t.Spec.Binary, "dir", t.Spec.Dir)

	lines := make(chan []byte, lineQueueSize)
	var dropped int
	go readLines(p.stdoutR, g.cfg.MaxLineBytes, lines, &dropped)

	errBuf := newTailBuffer(g.cfg.StderrLimit)
	stderrDone := make(chan struct{})
	go func() {
		_, _ = io.Copy(errBuf, p.stderrR)
		close(stderrDone)
	}()

	exited := make(chan struct{})
	waitCh := make(chan waitResult, 1)
	go func() {
		err := cmd.Wait()
		close(exited)
		waitCh <- exitStatus(err)
	}()

	var escCh chan procattr.Escalation
	terminate := func(reason string) {
		if escCh != nil {
			return
		}
		logger.Info("terminating turn", "reason", reason, "grace", g.cfg.GracePeriod)
		escCh = make(chan procattr.Escalation, 1)
		go func() {
			escCh <- procattr.Terminate(cmd.Process, g.cfg.GracePeriod, exited)
		}()
	}

	deadline := time.NewTimer(g.cfg.MaxTurnDuration)
	defer deadline.Stop()

	var drain <-chan time.Time
	var drainTimer *time.Timer
	defer func() {
		if drainTimer != nil {
			drainTimer.Stop()
		}
	}()

	snap := &turnSnapshot{deltas: t.Provider.Descriptor().Capabilities.TextDeltas}
	var sawTerminal, sawError bool
	var parsed int
	done := ctx.Done()
	linesCh := lines
	errCh := stderrDone
	var reaped bool

	var res waitResult
	for !reaped || linesCh != nil || errCh != nil {
		select {
		case line, ok := <-linesCh:
			if !ok {
				linesCh = nil
				continue
			}
			if sum.Cancelled || sum.TimedOut {
				continue
			}
			ev, ok := t.Provider.ParseEvent(line)
			if !ok {
				continue
			}
			parsed++
			ev = snap.apply(ev)
			if protocol.IsTerminal(ev) {
				sawTerminal = true
				if _, isErr := ev.(protocol.Error); isErr {
					sawError = true
				}
			}
			if out.Send(ev) {
				sum.Events++
			}
		case <-errCh:
			errCh = nil
		case <-done:
			done = nil
			sum.Cancelled = true
			out.Detach()
			terminate("client disconnected")
		case <-deadline.C:
			sum.TimedOut = true
			terminate("turn exceeded maximum duration")
		case res = <-waitCh:
			waitCh = nil
			reaped = true
			if linesCh != nil || errCh != nil {
				drainTimer = time.NewTimer(g.cfg.DrainTimeout)
				drain = drainTimer.C
			}
		case <-drain:
			drain = nil
			sum.Orphaned = true
			logger.Warn("output still open after exit, killing process group", "pid", sum.PID, "drain_timeout", g.cfg.DrainTimeout)
			if err := procattr.KillGroup(cmd.Process); err != nil {
				logger.Warn("kill process group failed", "pid", sum.PID, "error", err)
			}
			// Unblocks the readers even if a descendant left the group.
			p.closeReaders()
		}
	}
	if escCh != nil {
		sum.Escalation = <-escCh
	}

	sum.ExitCode = res.exitCode
	sum.Stderr = errBuf.String()
	sum.DroppedLines = dropped
	sum.Duration = time.Since(start)

	switch {
	case sum.Cancelled:
	case sum.TimedOut:
		if !sawTerminal {
			out.Send(protocol.Error{Message: fmt.Sprintf("turn exceeded maximum duration of %s", g.cfg.MaxTurnDuration)})
		}
	case res.err != nil:
		rerr := &RuntimeError{Provider: sum.Provider, ExitCode: res.exitCode, Stderr: sum.Stderr}
		sum.Err = rerr
		if !sawError {
			out.Send(protocol.Error{Message: rerr.Message()})
		}
	case parsed == 0:
		out.Send(protocol.Error{Message: silentSuccessMessage(sum.Provider)})
	case !sawTerminal:
		out.Send(snap.result())
	}

	attrs := []any{
		"pid", sum.PID,
		"exit_code", sum.ExitCode,
		"events", sum.Events,
		"cancelled", sum.Cancelled,
		"timed_out", sum.TimedOut,
		"sigterm", sum.Escalation.Terminated,
		"sigkill", sum.Escalation.Killed,
		"dropped_lines", sum.DroppedLines,
		"orphaned", sum.Orphaned,
		"duration_ms", sum.Duration.Milliseconds(),
	}
	if err := out.Err(); err != nil {
		attrs = append(attrs, "sink_error", err)
	}
	logger.Info("turn finished", attrs...)
	if sum.Stderr != "" {
		logger.Debug("turn stderr", "stderr", sum.Stderr)
	}
	return sum
}

// readLines feeds complete stdout lines into lines and closes it at EOF.
// The count of oversized lines is stored in dropped before lines closes.
func readLines(r io.Reader, maxLine int, lines chan<- []byte, dropped *int) {
	defer close(lines)
	lb := newLineBuffer(maxLine)
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range lb.Write(buf[:n]) {
				lines <- line
			}
		}
		if err != nil {
			if last := lb.Flush(); last != nil {
				lines <- last
			}
			*dropped = lb.Dropped()
			return
		}
	}
}

func exitStatus(err error) waitResult {
	if err == nil {
		return waitResult{}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return waitResult{exitCode: exitErr.ExitCode(), err: err}
	}
	return waitResult{exitCode: -1, err: err}
}
