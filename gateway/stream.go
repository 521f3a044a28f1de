package gateway

import (
	"sync"

	"github.com/bazelment/agentgate/protocol"
)

// FrameSink delivers one encoded frame payload to the client. Transports
// frame it (SSE data line, websocket message) and flush immediately.
type FrameSink interface {
	WriteFrame(payload []byte) error
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(payload []byte) error

// WriteFrame implements FrameSink.
func (f FrameSinkFunc) WriteFrame(payload []byte) error { return f(payload) }

// eventStream guards a sink so that nothing is written after the [DONE]
// sentinel or after the client went away.
type eventStream struct {
	mu     sync.Mutex
	sink   FrameSink
	closed bool
	err    error
}

func newEventStream(sink FrameSink) *eventStream {
	return &eventStream{sink: sink}
}

// Send encodes ev and writes it. It reports false once the stream is
// closed or the sink failed.
func (s *eventStream) Send(ev protocol.Event) bool {
	payload, err := protocol.Encode(ev)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if err := s.sink.WriteFrame(payload); err != nil {
		s.closed = true
		s.err = err
		return false
	}
	return true
}

// Detach closes the stream without writing the sentinel, for clients
// that already disconnected.
func (s *eventStream) Detach() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Close writes the [DONE] sentinel exactly once.
func (s *eventStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if err := s.sink.WriteFrame([]byte(protocol.DoneSentinel)); err != nil {
		s.err = err
	}
}

// Err returns the first sink error.
func (s *eventStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
