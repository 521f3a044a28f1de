// Package protocol defines the canonical event stream shared by every
// provider adapter, the gateway and its clients, plus the JSON shapes those
// events take on the wire.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType discriminates the canonical event union.
type EventType string

const (
	EventSystem    EventType = "system"
	EventAssistant EventType = "assistant"
	EventResult    EventType = "result"
	EventError     EventType = "error"
)

// Event is one of System, Assistant, Result or Error. The set is closed.
type Event interface {
	Type() EventType
	isEvent()
}

// System announces the provider session a turn is running in.
type System struct {
	SessionID     string
	Model         string
	SlashCommands []string
}

// Assistant is a snapshot of the assistant's output so far in the turn.
// Consumers replace their view with each snapshot instead of appending.
type Assistant struct {
	Text     string
	Thinking string
	Tools    []ToolInvocation
}

// ToolInvocation is a tool call made by the assistant. Input is the raw
// JSON arguments as the vendor reported them.
type ToolInvocation struct {
	Name  string
	Input json.RawMessage
}

// Result ends a successful turn.
type Result struct {
	Text       string
	CostUSD    *float64
	DurationMs *int64
	SessionID  string
}

// Error ends a failed turn.
type Error struct {
	Message string
}

func (System) Type() EventType    { return EventSystem }
func (Assistant) Type() EventType { return EventAssistant }
func (Result) Type() EventType    { return EventResult }
func (Error) Type() EventType     { return EventError }

func (System) isEvent()    {}
func (Assistant) isEvent() {}
func (Result) isEvent()    {}
func (Error) isEvent()     {}

// IsTerminal reports whether ev ends a turn.
func IsTerminal(ev Event) bool {
	switch ev.(type) {
	case Result, *Result, Error, *Error:
		return true
	}
	return false
}

// DoneSentinel is the payload of the final frame of every stream.
const DoneSentinel = "[DONE]"

// Content block types inside an assistant message.
const (
	BlockText     = "text"
	BlockThinking = "thinking"
	BlockToolUse  = "tool_use"
)

// WireEvent is the JSON object carried by one stream frame.
type WireEvent struct {
	Type          EventType    `json:"type" jsonschema:"enum=system,enum=assistant,enum=result,enum=error"`
	SessionID     string       `json:"session_id,omitempty"`
	Model         string       `json:"model,omitempty"`
	SlashCommands []string     `json:"slash_commands,omitempty"`
	Message       *WireMessage `json:"message,omitempty"`
	Result        string       `json:"result,omitempty"`
	CostUSD       *float64     `json:"cost_usd,omitempty"`
	DurationMs    *int64       `json:"duration_ms,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// WireMessage is the assistant message envelope.
type WireMessage struct {
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one text, thinking or tool_use block.
type ContentBlock struct {
	Type     string `json:"type" jsonschema:"enum=text,enum=thinking,enum=tool_use"`
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
	Name     string `json:"name,omitempty"`
	Input    any    `json:"input,omitempty"`
}

// ErrUnknownEventType is returned by Decode for frames whose type is not
// part of the canonical union.
var ErrUnknownEventType = errors.New("unknown event type")

// ToWire converts a canonical event to its wire shape.
func ToWire(ev Event) WireEvent {
	switch e := ev.(type) {
	case System:
		return WireEvent{Type: EventSystem, SessionID: e.SessionID, Model: e.Model, SlashCommands: e.SlashCommands}
	case Assistant:
		msg := &WireMessage{Content: []ContentBlock{}}
		if e.Thinking != "" {
			msg.Content = append(msg.Content, ContentBlock{Type: BlockThinking, Thinking: e.Thinking})
		}
		if e.Text != "" {
			msg.Content = append(msg.Content, ContentBlock{Type: BlockText, Text: e.Text})
		}
		for _, tool := range e.Tools {
			block := ContentBlock{Type: BlockToolUse, Name: tool.Name}
			if len(tool.Input) > 0 {
				block.Input = tool.Input
			}
			msg.Content = append(msg.Content, block)
		}
		return WireEvent{Type: EventAssistant, Message: msg}
	case Result:
		return WireEvent{Type: EventResult, Result: e.Text, CostUSD: e.CostUSD, DurationMs: e.DurationMs, SessionID: e.SessionID}
	case Error:
		msg := e.Message
		if msg == "" {
			msg = "unknown error"
		}
		return WireEvent{Type: EventError, Error: msg}
	}
	return WireEvent{Type: EventError, Error: fmt.Sprintf("unsupported event %T", ev)}
}

// Encode marshals ev as a single-line JSON frame payload.
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(ToWire(ev))
}

// FromWire converts a decoded wire object back into a canonical event.
func FromWire(w WireEvent) (Event, error) {
	switch w.Type {
	case EventSystem:
		return System{SessionID: w.SessionID, Model: w.Model, SlashCommands: w.SlashCommands}, nil
	case EventAssistant:
		var a Assistant
		if w.Message == nil {
			return a, nil
		}
		for _, block := range w.Message.Content {
			switch block.Type {
			case BlockText:
				a.Text += block.Text
			case BlockThinking:
				a.Thinking += block.Thinking
			case BlockToolUse:
				tool := ToolInvocation{Name: block.Name}
				if block.Input != nil {
					raw, err := json.Marshal(block.Input)
					if err != nil {
						return nil, fmt.Errorf("tool %q input: %w", block.Name, err)
					}
					tool.Input = raw
				}
				a.Tools = append(a.Tools, tool)
			}
		}
		return a, nil
	case EventResult:
		return Result{Text: w.Result, CostUSD: w.CostUSD, DurationMs: w.DurationMs, SessionID: w.SessionID}, nil
	case EventError:
		return Error{Message: w.Error}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, w.Type)
}

// Decode parses one frame payload.
func Decode(data []byte) (Event, error) {
	var w WireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return FromWire(w)
}
