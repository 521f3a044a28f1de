package gateway

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/agentgate/protocol"
	"github.com/bazelment/agentgate/provider"
)

func TestPrepare_Validation(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "proj")
	require.NoError(t, os.Mkdir(inside, 0o755))
	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	outside := t.TempDir()

	p := &scriptProvider{name: "claude", script: "unused", available: true}
	g := newTestGateway(t, p, func(c *Config) { c.Workspace = NewRootsPolicy([]string{root}) })

	tests := []struct {
		name  string
		req   protocol.ChatRequest
		field string
	}{
		{name: "empty message", req: protocol.ChatRequest{Message: "  \n"}, field: "message"},
		{name: "nul in message", req: protocol.ChatRequest{Message: "a\x00b"}, field: "message"},
		{name: "bad permission", req: protocol.ChatRequest{Message: "x", PermissionMode: "yolo"}, field: "permissionMode"},
		{name: "bad tool", req: protocol.ChatRequest{Message: "x", AllowedTools: []string{"Read", "Bash(rm:*)"}}, field: "allowedTools"},
		{name: "flag-like session", req: protocol.ChatRequest{Message: "x", SessionID: "--dangerously-skip-permissions"}, field: "sessionId"},
		{name: "flag-like model", req: protocol.ChatRequest{Message: "x", Model: "--help"}, field: "model"},
		{name: "relative cwd", req: protocol.ChatRequest{Message: "x", CWD: "proj"}, field: "cwd"},
		{name: "missing cwd", req: protocol.ChatRequest{Message: "x", CWD: filepath.Join(root, "nope")}, field: "cwd"},
		{name: "file cwd", req: protocol.ChatRequest{Message: "x", CWD: file}, field: "cwd"},
		{name: "outside roots", req: protocol.ChatRequest{Message: "x", CWD: outside}, field: "cwd"},
		{name: "dotdot escape", req: protocol.ChatRequest{Message: "x", CWD: filepath.Join(inside, "..", "..")}, field: "cwd"},
		{name: "unknown provider", req: protocol.ChatRequest{Message: "x", Provider: "gemini"}, field: "provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Prepare(tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestPrepare_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "escape")
	require.NoError(t, os.Symlink(outside, link))

	g := newTestGateway(t, &scriptProvider{name: "claude", available: true},
		func(c *Config) { c.Workspace = NewRootsPolicy([]string{root}) })

	_, err := g.Prepare(protocol.ChatRequest{Message: "x", CWD: link})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cwd", verr.Field)
}

func TestPrepare_Unavailable(t *testing.T) {
	g := newTestGateway(t, &scriptProvider{name: "claude", available: false})
	_, err := g.Prepare(protocol.ChatRequest{Message: "x"})

	var uerr *ProviderUnavailableError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "claude", uerr.Provider)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestPrepare_BuildsSpec(t *testing.T) {
	root := t.TempDir()
	p := &scriptProvider{name: "claude", script: "s.sh", available: true}
	g := newTestGateway(t, p, func(c *Config) { c.Workspace = NewRootsPolicy([]string{root}) })

	turn, err := g.Prepare(protocol.ChatRequest{
		Message:        " hi ",
		SessionID:      "0199a213-81c0",
		CWD:            root,
		PermissionMode: protocol.PermissionPlan,
		AllowedTools:   []string{"Read"},
		Model:          "opus",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, turn.ID)
	assert.Equal(t, []string{"s.sh", " hi "}, turn.Spec.Args)
	real, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, provider.BuildOptions{
		SessionID:      "0199a213-81c0",
		Model:          "opus",
		PermissionMode: protocol.PermissionPlan,
		AllowedTools:   []string{"Read"},
		CWD:            real,
	}, p.lastOpts)
}

func TestPrepare_DefaultsPermissionMode(t *testing.T) {
	p := &scriptProvider{name: "claude", available: true}
	g := newTestGateway(t, p)
	_, err := g.Prepare(protocol.ChatRequest{Message: "x"})
	require.NoError(t, err)
	assert.Equal(t, protocol.PermissionDefault, p.lastOpts.PermissionMode)
}

func TestPrepare_DistinctTurnIDs(t *testing.T) {
	g := newTestGateway(t, &scriptProvider{name: "claude", available: true})
	a, err := g.Prepare(protocol.ChatRequest{Message: "x"})
	require.NoError(t, err)
	b, err := g.Prepare(protocol.ChatRequest{Message: "x"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestRootsPolicy_SetRoots(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	p := NewRootsPolicy([]string{first})

	_, err := p.Resolve(second)
	assert.Error(t, err)

	p.SetRoots([]string{"", second})
	got, err := p.Resolve(second)
	require.NoError(t, err)
	real, _ := filepath.EvalSymlinks(second)
	assert.Equal(t, real, got)
	assert.Len(t, p.Roots(), 1)
}

func TestRootsPolicy_PrefixIsNotContainment(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "work")
	sibling := filepath.Join(base, "workshop")
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.Mkdir(sibling, 0o755))

	p := NewRootsPolicy([]string{root})
	_, err := p.Resolve(sibling)
	assert.Error(t, err)
	_, err = p.Resolve(root)
	assert.NoError(t, err)
}
