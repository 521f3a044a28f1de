// Package cursor adapts the Cursor Agent CLI (`agent -p --output-format
// stream-json`) to the canonical event stream.
package cursor

import (
	"os"

	"github.com/bazelment/agentgate/protocol"
	"github.com/bazelment/agentgate/provider"
)

// Provider is the Cursor Agent adapter. Cursor streams assistant text as
// deltas and has no tool allowlist.
type Provider struct {
	locator *provider.Locator
	env     map[string]string
	environ func() []string
}

var _ provider.CliProvider = (*Provider)(nil)

// nestingVars is empty: the Cursor Agent CLI exports no marker that makes
// a child agent refuse to start, so the inherited environment passes
// through unchanged apart from configured overrides.
var nestingVars []string

// Option configures a Provider.
type Option func(*Provider)

// WithBinary pins the CLI path instead of searching for it.
func WithBinary(path string) Option {
	return func(p *Provider) { p.locator.Override = path }
}

// WithEnv adds variables to every spawned process.
func WithEnv(env map[string]string) Option {
	return func(p *Provider) { p.env = env }
}

// WithEnviron replaces os.Environ as the base environment.
func WithEnviron(fn func() []string) Option {
	return func(p *Provider) { p.environ = fn }
}

// New returns a Cursor adapter.
func New(opts ...Option) *Provider {
	p := &Provider{
		locator: provider.NewLocator("", "agent",
			"~/.local/bin/agent",
			"~/.local/bin/cursor-agent",
		),
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Available implements provider.CliProvider.
func (p *Provider) Available() bool {
	return p.locator.Found()
}

// BinaryPath implements provider.Locatable.
func (p *Provider) BinaryPath() (string, error) {
	return p.locator.Locate()
}

// Descriptor implements provider.CliProvider.
func (p *Provider) Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:        provider.ProviderCursor,
		DisplayName: "Cursor Agent",
		Capabilities: provider.Capabilities{
			StreamingThinking: true,
			ToolUse:           true,
			Resume:            true,
			TextDeltas:        true,
		},
		Models: []provider.Model{{ID: "auto", Label: "auto"}},
	}
}

// BuildCommand implements provider.CliProvider.
func (p *Provider) BuildCommand(prompt string, opts provider.BuildOptions) provider.SpawnSpec {
	binary, err := p.locator.Locate()
	if err != nil {
		binary = "agent"
	}
	args := []string{"-p", "--output-format", "stream-json"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.SessionID != "" {
		args = append(args, "--resume", opts.SessionID)
	}
	switch opts.PermissionMode {
	case protocol.PermissionTrust:
		args = append(args, "--force", "--trust")
	case protocol.PermissionReadOnly, protocol.PermissionPlan:
		args = append(args, "--sandbox")
	}
	// acceptEdits has no cursor equivalent short of --force, which also
	// approves shell commands, so it runs as default.
	args = append(args, "--", prompt)

	return provider.SpawnSpec{
		Binary: binary,
		Args:   args,
		Env:    provider.Sanitize(provider.EnvMap(p.environ()), nestingVars, p.env),
		Dir:    opts.CWD,
	}
}
