package cursor

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/bazelment/agentgate/protocol"
	"github.com/bazelment/agentgate/provider"
)

// rawMessage holds the fields of every stream-json line the adapter reads.
// Example lines:
//
//	{"type":"system","subtype":"init","session_id":"...","model":"..."}
//	{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"..."}]}}
//	{"type":"tool_call","subtype":"started","call_id":"...","tool_call":{"readToolCall":{"args":{...}}}}
//	{"type":"result","subtype":"success","duration_ms":1234,"is_error":false,"result":"..."}
type rawMessage struct {
	Type       string                     `json:"type"`
	Subtype    string                     `json:"subtype"`
	SessionID  string                     `json:"session_id"`
	Model      string                     `json:"model"`
	Text       string                     `json:"text"`
	Message    *assistantInner            `json:"message"`
	ToolCall   map[string]json.RawMessage `json:"tool_call"`
	DurationMs *int64                     `json:"duration_ms"`
	IsError    bool                       `json:"is_error"`
	Result     string                     `json:"result"`
}

type assistantInner struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// ParseEvent implements provider.CliProvider.
func (p *Provider) ParseEvent(line []byte) (protocol.Event, bool) {
	return Parse(line)
}

// Parse maps one stream-json line to a canonical event. Assistant and
// thinking events carry deltas.
func Parse(line []byte) (protocol.Event, bool) {
	line = provider.TrimLine(line)
	var msg rawMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return provider.PlainText(line)
	}

	switch msg.Type {
	case "system":
		if msg.Subtype != "init" || msg.SessionID == "" {
			return nil, false
		}
		return protocol.System{SessionID: msg.SessionID, Model: msg.Model}, true
	case "assistant":
		if msg.Message == nil {
			return nil, false
		}
		var b strings.Builder
		for _, c := range msg.Message.Content {
			if c.Type == "text" {
				b.WriteString(c.Text)
			}
		}
		if b.Len() == 0 {
			return nil, false
		}
		return protocol.Assistant{Text: b.String()}, true
	case "thinking":
		if msg.Text == "" {
			return nil, false
		}
		return protocol.Assistant{Thinking: msg.Text}, true
	case "tool_call":
		if msg.Subtype != "started" {
			return nil, false
		}
		return parseToolCall(msg.ToolCall)
	case "result":
		if msg.IsError {
			text := msg.Result
			if text == "" {
				text = "cursor agent reported an error"
			}
			return protocol.Error{Message: text}, true
		}
		return protocol.Result{Text: msg.Result, DurationMs: msg.DurationMs, SessionID: msg.SessionID}, true
	}
	return nil, false
}

// parseToolCall reads the single-key {"<tool>": {"args": {...}}} object.
func parseToolCall(call map[string]json.RawMessage) (protocol.Event, bool) {
	if len(call) == 0 {
		return nil, false
	}
	names := make([]string, 0, len(call))
	for name := range call {
		names = append(names, name)
	}
	sort.Strings(names)
	name := names[0]

	var detail struct {
		Args json.RawMessage `json:"args"`
	}
	_ = json.Unmarshal(call[name], &detail)
	return protocol.Assistant{Tools: []protocol.ToolInvocation{{Name: name, Input: detail.Args}}}, true
}
