// Package client consumes the gateway's event stream: a per-turn
// controller state machine, HTTP and websocket streamers, a side-by-side
// compare runner and terminal rendering helpers.
package client

import (
	"time"

	"github.com/bazelment/agentgate/protocol"
)

// Phase is where a turn is in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseThinking
	PhaseUsingTool
	PhaseResponding
	PhaseComplete
	PhaseCancelled
	PhaseErrored
)

var phaseNames = [...]string{
	PhaseIdle:       "idle",
	PhaseConnecting: "connecting",
	PhaseThinking:   "thinking",
	PhaseUsingTool:  "using tool",
	PhaseResponding: "responding",
	PhaseComplete:   "complete",
	PhaseCancelled:  "cancelled",
	PhaseErrored:    "errored",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether no further events change the turn.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseCancelled || p == PhaseErrored
}

// TurnState is the renderable state of one turn.
type TurnState struct {
	Phase    Phase
	Text     string
	Thinking string
	// Tools is the ordered tool-call log of the turn.
	Tools    []protocol.ToolInvocation
	LastTool string

	SessionID  string
	Model      string
	CostUSD    *float64
	DurationMs *int64
	// Err is set when Phase is PhaseErrored.
	Err string

	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns the turn's running time at now, frozen once terminal.
func (s TurnState) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if !s.FinishedAt.IsZero() {
		return s.FinishedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

func (s TurnState) clone() TurnState {
	s.Tools = append([]protocol.ToolInvocation(nil), s.Tools...)
	return s
}
