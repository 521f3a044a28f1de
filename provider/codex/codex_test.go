package codex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/agentgate/protocol"
	"github.com/bazelment/agentgate/provider"
)

func newTestProvider(t *testing.T, environ ...string) *Provider {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "codex")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	return New(WithBinary(bin), WithEnviron(func() []string { return environ }))
}

func TestBuildCommand_Args(t *testing.T) {
	tests := []struct {
		name string
		opts provider.BuildOptions
		want []string
	}{
		{
			name: "default",
			want: []string{"exec", "--json", "--skip-git-repo-check", "--", "fix it"},
		},
		{
			name: "model",
			opts: provider.BuildOptions{Model: "gpt-5.2"},
			want: []string{"exec", "--json", "--skip-git-repo-check", "-m", "gpt-5.2", "--", "fix it"},
		},
		{
			name: "trust",
			opts: provider.BuildOptions{PermissionMode: protocol.PermissionTrust},
			want: []string{"exec", "--json", "--skip-git-repo-check", "--dangerously-bypass-approvals-and-sandbox", "--", "fix it"},
		},
		{
			name: "accept edits",
			opts: provider.BuildOptions{PermissionMode: protocol.PermissionAcceptEdits},
			want: []string{"exec", "--json", "--skip-git-repo-check", "--full-auto", "--", "fix it"},
		},
		{
			name: "plan degrades to read-only sandbox",
			opts: provider.BuildOptions{PermissionMode: protocol.PermissionPlan},
			want: []string{"exec", "--json", "--skip-git-repo-check", "--sandbox", "read-only", "--", "fix it"},
		},
		{
			name: "resume",
			opts: provider.BuildOptions{SessionID: "th_1"},
			want: []string{"exec", "resume", "--json", "--skip-git-repo-check", "--", "th_1", "fix it"},
		},
		{
			name: "resume read only uses config override",
			opts: provider.BuildOptions{SessionID: "th_1", PermissionMode: protocol.PermissionReadOnly},
			want: []string{"exec", "resume", "--json", "--skip-git-repo-check", "-c", `sandbox_mode="read-only"`, "--", "th_1", "fix it"},
		},
		{
			name: "allowed tools ignored",
			opts: provider.BuildOptions{AllowedTools: []string{"Read"}},
			want: []string{"exec", "--json", "--skip-git-repo-check", "--", "fix it"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newTestProvider(t).BuildCommand("fix it", tt.opts).Args)
		})
	}
}

func TestBuildCommand_Env(t *testing.T) {
	p := newTestProvider(t, "PATH=/usr/bin", "CODEX_SANDBOX=seatbelt", "CODEX_SANDBOX_NETWORK_DISABLED=1")
	p.env = map[string]string{"OPENAI_BASE_URL": "http://proxy"}

	spec := p.BuildCommand("x", provider.BuildOptions{CWD: "/work"})
	assert.NotContains(t, spec.Env, "CODEX_SANDBOX")
	assert.NotContains(t, spec.Env, "CODEX_SANDBOX_NETWORK_DISABLED")
	assert.Equal(t, "http://proxy", spec.Env["OPENAI_BASE_URL"])
	assert.Equal(t, "/work", spec.Dir)
}

func TestDescriptor(t *testing.T) {
	d := New().Descriptor()
	assert.Equal(t, provider.ProviderCodex, d.Name)
	assert.False(t, d.Capabilities.ToolAllowlist)
	assert.NotEmpty(t, d.Models)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want protocol.Event
		ok   bool
	}{
		{
			name: "thread started",
			line: `{"type":"thread.started","thread_id":"0199a213-81c0-7800-8aa1-bbab2a035a53"}`,
			want: protocol.System{SessionID: "0199a213-81c0-7800-8aa1-bbab2a035a53"},
			ok:   true,
		},
		{
			name: "turn started skipped",
			line: `{"type":"turn.started"}`,
		},
		{
			name: "agent message",
			line: `{"type":"item.completed","item":{"id":"item_3","type":"agent_message","text":"All tests pass."}}`,
			want: protocol.Assistant{Text: "All tests pass."},
			ok:   true,
		},
		{
			name: "reasoning",
			line: `{"type":"item.completed","item":{"id":"item_0","type":"reasoning","text":"**Scanning repo**"}}`,
			want: protocol.Assistant{Thinking: "**Scanning repo**"},
			ok:   true,
		},
		{
			name: "command started",
			line: `{"type":"item.started","item":{"id":"item_1","type":"command_execution","command":"bash -lc ls","aggregated_output":"","status":"in_progress"}}`,
			want: protocol.Assistant{Tools: []protocol.ToolInvocation{{Name: "shell", Input: []byte(`{"command":"bash -lc ls"}`)}}},
			ok:   true,
		},
		{
			name: "command completed not duplicated",
			line: `{"type":"item.completed","item":{"id":"item_1","type":"command_execution","command":"bash -lc ls","exit_code":0,"status":"completed"}}`,
		},
		{
			name: "mcp tool",
			line: `{"type":"item.started","item":{"id":"item_5","type":"mcp_tool_call","server":"github","tool":"get_issue","arguments":{"n":1}}}`,
			want: protocol.Assistant{Tools: []protocol.ToolInvocation{{Name: "github.get_issue", Input: []byte(`{"n":1}`)}}},
			ok:   true,
		},
		{
			name: "turn completed",
			line: `{"type":"turn.completed","usage":{"input_tokens":24763,"cached_input_tokens":24448,"output_tokens":122}}`,
			want: protocol.Result{},
			ok:   true,
		},
		{
			name: "turn failed",
			line: `{"type":"turn.failed","error":{"message":"stream disconnected"}}`,
			want: protocol.Error{Message: "stream disconnected"},
			ok:   true,
		},
		{
			name: "fatal error",
			line: `{"type":"error","message":"unexpected status 401 Unauthorized"}`,
			want: protocol.Error{Message: "unexpected status 401 Unauthorized"},
			ok:   true,
		},
		{
			name: "reconnect notice dropped",
			line: `{"type":"error","message":"Reconnecting... 1/5"}`,
		},
		{
			name: "unknown type",
			line: `{"type":"item.updated","item":{"type":"todo_list"}}`,
		},
		{
			name: "garbage json",
			line: `{"type":"item.comp`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := Parse([]byte(tt.line))
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			if a, isAssistant := tt.want.(protocol.Assistant); isAssistant && len(a.Tools) > 0 {
				got := ev.(protocol.Assistant)
				require.Len(t, got.Tools, len(a.Tools))
				assert.Equal(t, a.Tools[0].Name, got.Tools[0].Name)
				assert.JSONEq(t, string(a.Tools[0].Input), string(got.Tools[0].Input))
				return
			}
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestParse_FileChange(t *testing.T) {
	ev, ok := Parse([]byte(`{"type":"item.completed","item":{"id":"item_4","type":"file_change","changes":[{"path":"main.go","kind":"update"}],"status":"completed"}}`))
	require.True(t, ok)
	a := ev.(protocol.Assistant)
	require.Len(t, a.Tools, 1)
	assert.Equal(t, "apply_patch", a.Tools[0].Name)
	assert.JSONEq(t, `{"changes":[{"path":"main.go","kind":"update"}]}`, string(a.Tools[0].Input))
}
