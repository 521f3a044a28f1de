// Package claude adapts the Claude Code CLI (`claude -p --output-format
// stream-json`) to the canonical event stream.
package claude

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bazelment/agentgate/protocol"
	"github.com/bazelment/agentgate/provider"
)

// Environment markers a running Claude Code session exports. A child CLI
// that inherits them refuses to start or behaves as a nested instance.
var nestingVars = []string{
	"CLAUDECODE",
	"CLAUDE_CODE_ENTRYPOINT",
	"CLAUDE_CODE_SSE_PORT",
}

// gitBashVar tells Claude Code on Windows which bash to run tools with.
const gitBashVar = "CLAUDE_CODE_GIT_BASH_PATH"

var gitBashCandidates = []string{
	`C:\Program Files\Git\bin\bash.exe`,
	`C:\Program Files (x86)\Git\bin\bash.exe`,
}

// Tools denied in readOnly mode.
var writeTools = []string{"Bash", "Edit", "MultiEdit", "NotebookEdit", "Write"}

var models = []provider.Model{
	{ID: "opus", Label: "opus"},
	{ID: "sonnet", Label: "sonnet"},
	{ID: "haiku", Label: "haiku"},
}

// Provider is the Claude Code adapter.
type Provider struct {
	locator *provider.Locator
	env     map[string]string
	environ func() []string
	goos    string
	exists  func(string) bool
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

// New returns a Claude adapter.
func New(opts ...Option) *Provider {
	p := &Provider{
		locator: provider.NewLocator("", "claude",
			"~/.claude/local/claude",
			"~/.local/bin/claude",
			"~/.npm-global/bin/claude",
			"/opt/homebrew/bin/claude",
			"/usr/local/bin/claude",
		),
		environ: os.Environ,
		goos:    runtime.GOOS,
		exists:  fileExists,
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
		Name:        provider.ProviderClaude,
		DisplayName: "Claude Code",
		Capabilities: provider.Capabilities{
			StreamingThinking: true,
			ToolUse:           true,
			ToolAllowlist:     true,
			Resume:            true,
		},
		Models: models,
	}
}

// BuildCommand implements provider.CliProvider.
func (p *Provider) BuildCommand(prompt string, opts provider.BuildOptions) provider.SpawnSpec {
	binary, err := p.locator.Locate()
	if err != nil {
		binary = "claude"
	}
	return provider.SpawnSpec{
		Binary: binary,
		Args:   buildArgs(prompt, opts),
		Env:    p.buildEnv(),
		Dir:    opts.CWD,
	}
}

func buildArgs(prompt string, opts provider.BuildOptions) []string {
	args := []string{"-p", "--output-format", "stream-json", "--verbose"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.SessionID != "" {
		args = append(args, "--resume", opts.SessionID)
	}

	tools := provider.FilterToolNames(opts.AllowedTools)
	switch opts.PermissionMode {
	case protocol.PermissionTrust:
		// Skipping prompts makes allow/deny lists meaningless and the CLI
		// rejects the combination.
		args = append(args, "--dangerously-skip-permissions")
		tools = nil
	case protocol.PermissionAcceptEdits:
		args = append(args, "--permission-mode", "acceptEdits")
	case protocol.PermissionPlan:
		args = append(args, "--permission-mode", "plan")
	case protocol.PermissionReadOnly:
		args = append(args, "--permission-mode", "default",
			"--disallowed-tools", strings.Join(writeTools, ","))
	}
	if len(tools) > 0 {
		args = append(args, "--allowed-tools", strings.Join(tools, ","))
	}
	return append(args, "--", prompt)
}

func (p *Provider) buildEnv() map[string]string {
	env := provider.Sanitize(provider.EnvMap(p.environ()), nestingVars, p.env)
	if p.goos == "windows" && env[gitBashVar] == "" {
		if bash := p.findGitBash(env); bash != "" {
			env[gitBashVar] = bash
		}
	}
	return env
}

func (p *Provider) findGitBash(env map[string]string) string {
	candidates := gitBashCandidates
	if pf := env["ProgramFiles"]; pf != "" {
		candidates = append([]string{pf + `\Git\bin\bash.exe`}, candidates...)
	}
	if local := env["LOCALAPPDATA"]; local != "" {
		candidates = append(candidates, local+`\Programs\Git\bin\bash.exe`)
	}
	for _, c := range candidates {
		if p.exists(c) {
			return c
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(filepath.Clean(path))
	return err == nil && !info.IsDir()
}
