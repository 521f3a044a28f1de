package claude

import (
	"encoding/json"
	"strings"

	"github.com/bazelment/agentgate/protocol"
	"github.com/bazelment/agentgate/provider"
)

// streamMessage is the envelope shared by every stream-json line. Only the
// fields the gateway forwards are decoded.
type streamMessage struct {
	Type          string          `json:"type"`
	Subtype       string          `json:"subtype"`
	SessionID     string          `json:"session_id"`
	Model         string          `json:"model"`
	SlashCommands []string        `json:"slash_commands"`
	Message       json.RawMessage `json:"message"`
	Result        string          `json:"result"`
	IsError       bool            `json:"is_error"`
	TotalCostUSD  *float64        `json:"total_cost_usd"`
	CostUSD       *float64        `json:"cost_usd"`
	DurationMs    *int64          `json:"duration_ms"`
	Error         json.RawMessage `json:"error"`
}

type assistantMessage struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Thinking string          `json:"thinking"`
	Name     string          `json:"name"`
	Input    json.RawMessage `json:"input"`
}

// ParseEvent implements provider.CliProvider.
func (p *Provider) ParseEvent(line []byte) (protocol.Event, bool) {
	return Parse(line)
}

// Parse maps one stream-json line to a canonical event.
func Parse(line []byte) (protocol.Event, bool) {
	line = provider.TrimLine(line)
	var msg streamMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return provider.PlainText(line)
	}

	switch msg.Type {
	case "system":
		if msg.Subtype != "init" || msg.SessionID == "" {
			return nil, false
		}
		return protocol.System{
			SessionID:     msg.SessionID,
			Model:         msg.Model,
			SlashCommands: msg.SlashCommands,
		}, true
	case "assistant":
		return parseAssistant(msg.Message)
	case "result":
		return parseResult(msg), true
	case "error":
		text := errorText(msg.Error)
		if text == "" {
			text = msg.Result
		}
		return protocol.Error{Message: text}, true
	}
	// user (tool results), stream_event and future types carry nothing the
	// client renders.
	return nil, false
}

func parseAssistant(raw json.RawMessage) (protocol.Event, bool) {
	var am assistantMessage
	if len(raw) == 0 || json.Unmarshal(raw, &am) != nil {
		return nil, false
	}
	var (
		text     strings.Builder
		thinking strings.Builder
		ev       protocol.Assistant
	)
	for _, block := range am.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "thinking":
			thinking.WriteString(block.Thinking)
		case "tool_use":
			ev.Tools = append(ev.Tools, protocol.ToolInvocation{Name: block.Name, Input: block.Input})
		}
	}
	ev.Text = text.String()
	ev.Thinking = thinking.String()
	if ev.Text == "" && ev.Thinking == "" && len(ev.Tools) == 0 {
		return nil, false
	}
	return ev, true
}

// errorText accepts either a bare string or an object with a message.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}

func parseResult(msg streamMessage) protocol.Event {
	if msg.IsError {
		text := msg.Result
		if text == "" {
			text = "claude reported " + strings.ReplaceAll(msg.Subtype, "_", " ")
		}
		return protocol.Error{Message: text}
	}
	cost := msg.TotalCostUSD
	if cost == nil {
		cost = msg.CostUSD
	}
	return protocol.Result{
		Text:       msg.Result,
		CostUSD:    cost,
		DurationMs: msg.DurationMs,
		SessionID:  msg.SessionID,
	}
}
