// Package codex adapts the OpenAI Codex CLI (`codex exec --json`) to the
// canonical event stream.
package codex

import (
	"os"

	"github.com/bazelment/agentgate/protocol"
	"github.com/bazelment/agentgate/provider"
)

// Codex exports these inside its own sandbox. A nested codex that sees them
// assumes it is already sandboxed.
var nestingVars = []string{
	"CODEX_SANDBOX",
	"CODEX_SANDBOX_NETWORK_DISABLED",
}

var models = []provider.Model{
	{ID: "gpt-5.3-codex", Label: "gpt-5.3-codex"},
	{ID: "gpt-5.2", Label: "gpt-5.2"},
	{ID: "gpt-5.1-codex-max", Label: "gpt-5.1-codex-max"},
}

// Provider is the Codex adapter.
type Provider struct {
	locator *provider.Locator
	env     map[string]string
	environ func() []string
}

var _ provider.CliProvider = (*Provider)(nil)

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

// New returns a Codex adapter.
func New(opts ...Option) *Provider {
	p := &Provider{
		locator: provider.NewLocator("", "codex",
			"~/.local/bin/codex",
			"~/.npm-global/bin/codex",
			"/opt/homebrew/bin/codex",
			"/usr/local/bin/codex",
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
		Name:        provider.ProviderCodex,
		DisplayName: "Codex",
		Capabilities: provider.Capabilities{
			StreamingThinking: true,
			ToolUse:           true,
			Resume:            true,
		},
		Models: models,
	}
}

// BuildCommand implements provider.CliProvider. Codex has no tool
// allowlist, so AllowedTools is ignored.
func (p *Provider) BuildCommand(prompt string, opts provider.BuildOptions) provider.SpawnSpec {
	binary, err := p.locator.Locate()
	if err != nil {
		binary = "codex"
	}
	return provider.SpawnSpec{
		Binary: binary,
		Args:   buildArgs(prompt, opts),
		Env:    provider.Sanitize(provider.EnvMap(p.environ()), nestingVars, p.env),
		Dir:    opts.CWD,
	}
}

func buildArgs(prompt string, opts provider.BuildOptions) []string {
	resume := opts.SessionID != ""
	args := []string{"exec"}
	if resume {
		args = append(args, "resume")
	}
	args = append(args, "--json", "--skip-git-repo-check")
	if opts.Model != "" {
		args = append(args, "-m", opts.Model)
	}
	args = append(args, policyArgs(opts.PermissionMode, resume)...)
	args = append(args, "--")
	if resume {
		args = append(args, opts.SessionID)
	}
	return append(args, prompt)
}

// policyArgs maps a permission mode to sandbox flags. Codex has no plan
// mode; plan and readOnly both run in the read-only sandbox. `exec resume`
// rejects --sandbox, so the sandbox is set through a config override there.
func policyArgs(mode protocol.PermissionMode, resume bool) []string {
	switch mode {
	case protocol.PermissionTrust:
		return []string{"--dangerously-bypass-approvals-and-sandbox"}
	case protocol.PermissionAcceptEdits:
		return []string{"--full-auto"}
	case protocol.PermissionReadOnly, protocol.PermissionPlan:
		if resume {
			return []string{"-c", `sandbox_mode="read-only"`}
		}
		return []string{"--sandbox", "read-only"}
	}
	return nil
}
