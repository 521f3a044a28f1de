package gateway

import (
	"github.com/bazelment/agentgate/protocol"
)

// turnSnapshot folds a provider's assistant events into cumulative
// snapshots so clients can replace their view on every frame.
type turnSnapshot struct {
	deltas    bool
	text      string
	thinking  string
	tools     []protocol.ToolInvocation
	sessionID string
}

func (s *turnSnapshot) apply(ev protocol.Event) protocol.Event {
	switch e := ev.(type) {
	case protocol.System:
		if e.SessionID != "" {
			s.sessionID = e.SessionID
		}
		return e
	case protocol.Assistant:
		s.text = s.join(s.text, e.Text)
		s.thinking = s.join(s.thinking, e.Thinking)
		s.tools = append(s.tools, e.Tools...)
		return s.assistant()
	case protocol.Result:
		if e.SessionID == "" {
			e.SessionID = s.sessionID
		}
		if e.Text == "" {
			e.Text = s.text
		}
		return e
	}
	return ev
}

func (s *turnSnapshot) assistant() protocol.Assistant {
	a := protocol.Assistant{Text: s.text, Thinking: s.thinking}
	if len(s.tools) > 0 {
		a.Tools = append([]protocol.ToolInvocation(nil), s.tools...)
	}
	return a
}

// result builds the Result sent when a CLI exits cleanly without one.
func (s *turnSnapshot) result() protocol.Result {
	return protocol.Result{Text: s.text, SessionID: s.sessionID}
}

func (s *turnSnapshot) join(prev, next string) string {
	switch {
	case next == "":
		return prev
	case prev == "" || s.deltas:
		return prev + next
	default:
		return prev + "\n\n" + next
	}
}
