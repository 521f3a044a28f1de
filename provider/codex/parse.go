package codex

import (
	"encoding/json"
	"strings"

	"github.com/bazelment/agentgate/protocol"
	"github.com/bazelment/agentgate/provider"
)

type event struct {
	Type     string          `json:"type"`
	ThreadID string          `json:"thread_id"`
	Item     *item           `json:"item"`
	Message  string          `json:"message"`
	Error    json.RawMessage `json:"error"`
}

type item struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Command  string          `json:"command"`
	Server   string          `json:"server"`
	Tool     string          `json:"tool"`
	Query    string          `json:"query"`
	Changes  json.RawMessage `json:"changes"`
	Argument json.RawMessage `json:"arguments"`
}

// ParseEvent implements provider.CliProvider.
func (p *Provider) ParseEvent(line []byte) (protocol.Event, bool) {
	return Parse(line)
}

// Parse maps one `codex exec --json` line to a canonical event.
func Parse(line []byte) (protocol.Event, bool) {
	line = provider.TrimLine(line)
	var ev event
	if err := json.Unmarshal(line, &ev); err != nil {
		return provider.PlainText(line)
	}

	switch ev.Type {
	case "thread.started":
		if ev.ThreadID == "" {
			return nil, false
		}
		return protocol.System{SessionID: ev.ThreadID}, true
	case "item.started":
		if ev.Item == nil {
			return nil, false
		}
		return toolStarted(*ev.Item)
	case "item.completed":
		if ev.Item == nil {
			return nil, false
		}
		return itemCompleted(*ev.Item)
	case "turn.completed":
		return protocol.Result{}, true
	case "turn.failed":
		msg := errorMessage(ev.Error)
		if msg == "" {
			msg = "codex turn failed"
		}
		return protocol.Error{Message: msg}, true
	case "error":
		// Transport retries are reported as errors but the turn continues.
		if strings.HasPrefix(ev.Message, "Reconnecting") {
			return nil, false
		}
		msg := ev.Message
		if msg == "" {
			msg = errorMessage(ev.Error)
		}
		return protocol.Error{Message: msg}, true
	}
	return nil, false
}

func toolStarted(it item) (protocol.Event, bool) {
	var tool protocol.ToolInvocation
	switch it.Type {
	case "command_execution":
		tool = protocol.ToolInvocation{Name: "shell", Input: mustJSON(map[string]string{"command": it.Command})}
	case "mcp_tool_call":
		tool = protocol.ToolInvocation{Name: it.Server + "." + it.Tool, Input: it.Argument}
	case "web_search":
		tool = protocol.ToolInvocation{Name: "web_search", Input: mustJSON(map[string]string{"query": it.Query})}
	default:
		return nil, false
	}
	return protocol.Assistant{Tools: []protocol.ToolInvocation{tool}}, true
}

func itemCompleted(it item) (protocol.Event, bool) {
	switch it.Type {
	case "agent_message":
		if it.Text == "" {
			return nil, false
		}
		return protocol.Assistant{Text: it.Text}, true
	case "reasoning":
		if it.Text == "" {
			return nil, false
		}
		return protocol.Assistant{Thinking: it.Text}, true
	case "file_change":
		input := json.RawMessage(`{}`)
		if len(it.Changes) > 0 {
			input = mustJSON(map[string]json.RawMessage{"changes": it.Changes})
		}
		return protocol.Assistant{Tools: []protocol.ToolInvocation{{Name: "apply_patch", Input: input}}}, true
	case "error":
		return protocol.Assistant{Text: it.Text}, it.Text != ""
	}
	// command_execution, mcp_tool_call and web_search were announced on
	// item.started. todo_list updates are not rendered.
	return nil, false
}

func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
