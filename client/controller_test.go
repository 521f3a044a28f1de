package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/agentgate/protocol"
)

type fakeStreamer struct {
	events []protocol.Event
	err    error
	// block keeps the stream open until ctx is cancelled.
	block bool
	// started is closed once all events have been delivered.
	started chan struct{}

	mu   sync.Mutex
	reqs []protocol.ChatRequest
}

func (f *fakeStreamer) Stream(ctx context.Context, req protocol.ChatRequest, fn func(protocol.Event)) error {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	for _, ev := range f.events {
		fn(ev)
	}
	if f.started != nil {
		close(f.started)
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func cost(v float64) *float64 { return &v }

type phaseRecorder struct {
	mu     sync.Mutex
	phases []Phase
}

func (r *phaseRecorder) record(st TurnState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.phases); n == 0 || r.phases[n-1] != st.Phase {
		r.phases = append(r.phases, st.Phase)
	}
}

func (r *phaseRecorder) get() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Phase(nil), r.phases...)
}

func TestControllerPhaseTransitions(t *testing.T) {
	bash := protocol.ToolInvocation{Name: "Bash", Input: []byte(`{"command":"ls"}`)}
	s := &fakeStreamer{events: []protocol.Event{
		protocol.System{SessionID: "s-1", Model: "opus"},
		protocol.Assistant{Thinking: "hmm"},
		protocol.Assistant{Thinking: "hmm", Tools: []protocol.ToolInvocation{bash}},
		protocol.Assistant{Thinking: "hmm", Text: "done", Tools: []protocol.ToolInvocation{bash}},
		protocol.Result{Text: "done", CostUSD: cost(0.5), SessionID: "s-1"},
	}}
	rec := &phaseRecorder{}
	c := NewController(WithOnUpdate(rec.record))
	assert.Equal(t, PhaseIdle, c.State().Phase)

	st := c.Send(context.Background(), s, protocol.ChatRequest{Message: "hi"})

	assert.Equal(t, []Phase{PhaseConnecting, PhaseThinking, PhaseUsingTool, PhaseResponding, PhaseComplete}, rec.get())
	assert.Equal(t, PhaseComplete, st.Phase)
	assert.Equal(t, "done", st.Text)
	assert.Equal(t, "s-1", st.SessionID)
	assert.Equal(t, "opus", st.Model)
	assert.Equal(t, "Bash", st.LastTool)
	require.NotNil(t, st.CostUSD)
	assert.InDelta(t, 0.5, *st.CostUSD, 1e-9)
	assert.False(t, st.FinishedAt.IsZero())
}

func TestControllerApplyRules(t *testing.T) {
	read := protocol.ToolInvocation{Name: "Read"}
	edit := protocol.ToolInvocation{Name: "Edit"}

	tests := []struct {
		name   string
		events []protocol.Event
		want   Phase
	}{
		{"thinking only", []protocol.Event{protocol.Assistant{Thinking: "x"}}, PhaseThinking},
		{"text", []protocol.Event{protocol.Assistant{Text: "x"}}, PhaseResponding},
		{"tool with text", []protocol.Event{protocol.Assistant{Text: "x", Tools: []protocol.ToolInvocation{read}}}, PhaseUsingTool},
		{"same tools then text", []protocol.Event{
			protocol.Assistant{Tools: []protocol.ToolInvocation{read}},
			protocol.Assistant{Text: "x", Tools: []protocol.ToolInvocation{read}},
		}, PhaseResponding},
		{"second tool", []protocol.Event{
			protocol.Assistant{Text: "x", Tools: []protocol.ToolInvocation{read}},
			protocol.Assistant{Text: "x", Tools: []protocol.ToolInvocation{read, edit}},
		}, PhaseUsingTool},
		{"empty snapshot keeps phase", []protocol.Event{
			protocol.Assistant{Text: "x"},
			protocol.Assistant{},
		}, PhaseResponding},
		{"error", []protocol.Event{protocol.Error{Message: "boom"}}, PhaseErrored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController()
			c.state = TurnState{Phase: PhaseConnecting}
			for _, ev := range tt.events {
				c.Apply(ev)
			}
			assert.Equal(t, tt.want, c.State().Phase)
		})
	}
}

func TestControllerReplacesText(t *testing.T) {
	c := NewController()
	c.state = TurnState{Phase: PhaseConnecting}
	c.Apply(protocol.Assistant{Text: "Hel"})
	c.Apply(protocol.Assistant{Text: "Hello"})
	assert.Equal(t, "Hello", c.State().Text)
}

func TestControllerTerminalIsAbsorbing(t *testing.T) {
	s := &fakeStreamer{events: []protocol.Event{
		protocol.Assistant{Text: "a"},
		protocol.Error{Message: "boom"},
		protocol.Assistant{Text: "late"},
		protocol.Result{Text: "late"},
	}}
	c := NewController()
	st := c.Send(context.Background(), s, protocol.ChatRequest{Message: "hi"})

	assert.Equal(t, PhaseErrored, st.Phase)
	assert.Equal(t, "boom", st.Err)
	assert.Equal(t, "a", st.Text)
	assert.False(t, c.Apply(protocol.Result{}))
}

func TestControllerStreamClosedWithoutResult(t *testing.T) {
	s := &fakeStreamer{events: []protocol.Event{protocol.Assistant{Text: "partial"}}}
	st := NewController().Send(context.Background(), s, protocol.ChatRequest{Message: "hi"})
	assert.Equal(t, PhaseErrored, st.Phase)
	assert.Equal(t, ErrStreamClosed.Error(), st.Err)
	assert.Equal(t, "partial", st.Text)
}

func TestControllerStreamerError(t *testing.T) {
	s := &fakeStreamer{err: errors.New("connection refused")}
	st := NewController().Send(context.Background(), s, protocol.ChatRequest{Message: "hi"})
	assert.Equal(t, PhaseErrored, st.Phase)
	assert.Equal(t, "connection refused", st.Err)
}

func TestControllerCancel(t *testing.T) {
	s := &fakeStreamer{
		events:  []protocol.Event{protocol.Assistant{Text: "working"}},
		block:   true,
		started: make(chan struct{}),
	}
	rec := &phaseRecorder{}
	c := NewController(WithOnUpdate(rec.record))

	done := make(chan TurnState, 1)
	go func() { done <- c.Send(context.Background(), s, protocol.ChatRequest{Message: "hi"}) }()

	<-s.started
	c.Cancel()

	select {
	case st := <-done:
		assert.Equal(t, PhaseCancelled, st.Phase)
		assert.Equal(t, "working", st.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("Send did not return after Cancel")
	}
	assert.Equal(t, []Phase{PhaseConnecting, PhaseResponding, PhaseCancelled}, rec.get())
	assert.False(t, c.Apply(protocol.Assistant{Text: "late"}))
}

func TestControllerParentContextCancel(t *testing.T) {
	s := &fakeStreamer{block: true, started: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-s.started
		cancel()
	}()
	st := NewController().Send(ctx, s, protocol.ChatRequest{Message: "hi"})
	assert.Equal(t, PhaseCancelled, st.Phase)
}

func TestControllerCancelIdleIsNoop(t *testing.T) {
	c := NewController()
	c.Cancel()
	assert.Equal(t, PhaseIdle, c.State().Phase)
}

func TestControllerElapsed(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewController(WithClock(func() time.Time { return now }))
	assert.Zero(t, c.Elapsed())

	s := &fakeStreamer{block: true, started: make(chan struct{})}
	done := make(chan struct{})
	go func() {
		c.Send(context.Background(), s, protocol.ChatRequest{Message: "hi"})
		close(done)
	}()
	<-s.started

	// The clock is read under the controller lock, so advancing it here
	// only needs to happen before the next read.
	c.mu.Lock()
	now = now.Add(3 * time.Second)
	c.mu.Unlock()
	assert.Equal(t, 3*time.Second, c.Elapsed())

	c.Cancel()
	<-done
	c.mu.Lock()
	now = now.Add(time.Minute)
	c.mu.Unlock()
	assert.Equal(t, 3*time.Second, c.Elapsed())
}

func TestControllerReuseAfterTerminal(t *testing.T) {
	c := NewController()
	first := c.Send(context.Background(), &fakeStreamer{events: []protocol.Event{protocol.Result{Text: "one"}}}, protocol.ChatRequest{Message: "a"})
	second := c.Send(context.Background(), &fakeStreamer{events: []protocol.Event{protocol.Result{Text: "two"}}}, protocol.ChatRequest{Message: "b"})
	assert.Equal(t, "one", first.Text)
	assert.Equal(t, "two", second.Text)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "using tool", PhaseUsingTool.String())
	assert.Equal(t, "unknown", Phase(42).String())
	assert.True(t, PhaseCancelled.Terminal())
	assert.False(t, PhaseResponding.Terminal())
}
