// Package provider defines the contract every agent CLI adapter implements
// and the registry the gateway resolves adapters from.
package provider

import (
	"sort"

	"github.com/bazelment/agentgate/protocol"
)

// Provider names.
const (
	ProviderClaude = "claude"
	ProviderCodex  = "codex"
	ProviderCursor = "cursor"
)

// Capabilities describes what a provider's CLI can do.
type Capabilities struct {
	// StreamingThinking is set when the CLI reports reasoning as it goes.
	StreamingThinking bool `json:"streaming_thinking"`
	ToolUse           bool `json:"tool_use"`
	// ToolAllowlist is set when allowed tool names are forwarded to the CLI.
	ToolAllowlist bool `json:"tool_allowlist"`
	Resume        bool `json:"resume"`
	// TextDeltas is set when assistant events carry increments rather than
	// whole messages.
	TextDeltas bool `json:"text_deltas"`
}

// Model is a model id accepted by the provider's --model flag.
type Model struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Descriptor is the immutable identity of a provider.
type Descriptor struct {
	Name         string       `json:"name"`
	DisplayName  string       `json:"display_name"`
	Capabilities Capabilities `json:"capabilities"`
	Models       []Model      `json:"models,omitempty"`
}

// BuildOptions carries the per-turn parameters of a command.
type BuildOptions struct {
	SessionID      string
	Model          string
	PermissionMode protocol.PermissionMode
	AllowedTools   []string
	CWD            string
}

// SpawnSpec is everything needed to start one CLI invocation.
type SpawnSpec struct {
	Binary string
	Args   []string
	Env    map[string]string
	Dir    string
}

// Environ renders Env as a sorted KEY=VALUE list for exec.Cmd.
func (s SpawnSpec) Environ() []string {
	out := make([]string, 0, len(s.Env))
	for k, v := range s.Env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// CliProvider adapts one vendor CLI to the canonical event stream.
type CliProvider interface {
	// Available reports whether the binary can be resolved. It never
	// spawns the CLI.
	Available() bool
	Descriptor() Descriptor
	// BuildCommand returns a fresh SpawnSpec for prompt.
	BuildCommand(prompt string, opts BuildOptions) SpawnSpec
	// ParseEvent maps one complete stdout line to a canonical event. The
	// boolean is false when the line carries nothing for the client.
	ParseEvent(line []byte) (protocol.Event, bool)
}

// Locatable is implemented by adapters that can report where their binary
// resolved to.
type Locatable interface {
	BinaryPath() (string, error)
}
