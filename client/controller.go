package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bazelment/agentgate/protocol"
)

// ErrStreamClosed is reported when a stream ends without a Result or Error.
var ErrStreamClosed = errors.New("stream closed without a result")

// Streamer sends req and invokes fn for each event until the stream ends.
// It returns nil when the stream ended normally.
type Streamer interface {
	Stream(ctx context.Context, req protocol.ChatRequest, fn func(protocol.Event)) error
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithOnUpdate registers a callback invoked with a copy of the state after
// every change. It runs on the goroutine that caused the change.
func WithOnUpdate(fn func(TurnState)) ControllerOption {
	return func(c *Controller) { c.onUpdate = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// Controller drives one turn at a time through its phases. Controllers
// share nothing, so any number can run side by side.
type Controller struct {
	mu       sync.Mutex
	state    TurnState
	cancel   context.CancelFunc
	onUpdate func(TurnState)
	now      func() time.Time
}

// NewController returns an idle controller.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send starts a turn and blocks until it reaches a terminal phase. A
// controller runs one turn at a time; Send on a busy controller returns its
// current state unchanged.
func (c *Controller) Send(ctx context.Context, s Streamer, req protocol.ChatRequest) TurnState {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if p := c.state.Phase; p != PhaseIdle && !p.Terminal() {
		st := c.state.clone()
		c.mu.Unlock()
		return st
	}
	c.state = TurnState{Phase: PhaseConnecting, StartedAt: c.now()}
	c.cancel = cancel
	st := c.state.clone()
	c.mu.Unlock()
	c.notify(st)

	err := s.Stream(ctx, req, func(ev protocol.Event) { c.Apply(ev) })
	c.finish(ctx, err)
	return c.State()
}

// Apply folds ev into the state. Events after a terminal phase are
// ignored; the return value reports whether the state changed.
func (c *Controller) Apply(ev protocol.Event) bool {
	c.mu.Lock()
	if c.state.Phase.Terminal() {
		c.mu.Unlock()
		return false
	}
	s := &c.state
	switch e := ev.(type) {
	case protocol.System:
		s.SessionID = e.SessionID
		if e.Model != "" {
			s.Model = e.Model
		}
	case protocol.Assistant:
		newTool := len(e.Tools) > len(s.Tools)
		s.Text = e.Text
		s.Thinking = e.Thinking
		s.Tools = append([]protocol.ToolInvocation(nil), e.Tools...)
		if n := len(s.Tools); n > 0 {
			s.LastTool = s.Tools[n-1].Name
		}
		switch {
		case newTool:
			s.Phase = PhaseUsingTool
		case e.Text != "":
			s.Phase = PhaseResponding
		case e.Thinking != "":
			s.Phase = PhaseThinking
		}
	case protocol.Result:
		if e.Text != "" {
			s.Text = e.Text
		}
		if e.SessionID != "" {
			s.SessionID = e.SessionID
		}
		s.CostUSD = e.CostUSD
		s.DurationMs = e.DurationMs
		s.Phase = PhaseComplete
		s.FinishedAt = c.now()
	case protocol.Error:
		s.Err = e.Message
		s.Phase = PhaseErrored
		s.FinishedAt = c.now()
	default:
		c.mu.Unlock()
		return false
	}
	st := s.clone()
	c.mu.Unlock()
	c.notify(st)
	return true
}

// Cancel aborts the in-flight request. It is a no-op once terminal.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state.Phase == PhaseIdle || c.state.Phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.state.Phase = PhaseCancelled
	c.state.FinishedAt = c.now()
	cancel := c.cancel
	st := c.state.clone()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.notify(st)
}

// State returns a copy of the current state.
func (c *Controller) State() TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Elapsed returns the running time of the current turn.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Elapsed(c.now())
}

func (c *Controller) finish(ctx context.Context, err error) {
	c.mu.Lock()
	if c.state.Phase.Terminal() {
		c.mu.Unlock()
		return
	}
	switch {
	case ctx.Err() != nil:
		c.state.Phase = PhaseCancelled
	case err != nil:
		c.state.Phase = PhaseErrored
		c.state.Err = err.Error()
	default:
		c.state.Phase = PhaseErrored
		c.state.Err = ErrStreamClosed.Error()
	}
	c.state.FinishedAt = c.now()
	c.cancel = nil
	st := c.state.clone()
	c.mu.Unlock()
	c.notify(st)
}

func (c *Controller) notify(st TurnState) {
	if c.onUpdate != nil {
		c.onUpdate(st)
	}
}
