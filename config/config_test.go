package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, "claude", cfg.DefaultProvider)
	assert.Equal(t, 5*time.Second, cfg.GracePeriod)
	assert.Equal(t, 30*time.Minute, cfg.MaxTurnDuration)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, t.TempDir(), `
listen: 0.0.0.0:9000
auth_token: s3cret
default_provider: codex
allowed_roots:
  - `+root+`
grace_period: 2s
max_turn_duration: 10m
log_level: debug
log_format: json
providers:
  codex:
    binary: /opt/codex/bin/codex
    env:
      OPENAI_BASE_URL: http://localhost:1234
  cursor:
    enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "s3cret", cfg.AuthToken)
	assert.Equal(t, "codex", cfg.DefaultProvider)
	assert.Equal(t, []string{root}, cfg.AllowedRoots)
	assert.Equal(t, 2*time.Second, cfg.GracePeriod)
	assert.Equal(t, 10*time.Minute, cfg.MaxTurnDuration)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, "/opt/codex/bin/codex", cfg.Provider("codex").Binary)
	assert.Equal(t, "http://localhost:1234", cfg.Provider("codex").Env["OPENAI_BASE_URL"])
	assert.True(t, cfg.Provider("claude").IsEnabled())
	assert.False(t, cfg.Provider("cursor").IsEnabled())
	// Unset keys keep their defaults.
	assert.Equal(t, int64(defaultMaxRequestBytes), cfg.MaxRequestBytes)
}

func TestLoadEnvOverrides(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, t.TempDir(), "listen: 127.0.0.1:1\n")
	t.Setenv("AGENTGATE_LISTEN", ":7000")
	t.Setenv("AGENTGATE_ALLOWED_ROOTS", root)
	t.Setenv("AGENTGATE_GRACE_PERIOD", "750ms")
	t.Setenv("AGENTGATE_CLAUDE_BINARY", "/usr/bin/claude")
	t.Setenv("AGENTGATE_MAX_REQUEST_BYTES", "2048")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, []string{root}, cfg.AllowedRoots)
	assert.Equal(t, 750*time.Millisecond, cfg.GracePeriod)
	assert.Equal(t, "/usr/bin/claude", cfg.Provider("claude").Binary)
	assert.Equal(t, int64(2048), cfg.MaxRequestBytes)
}

func TestLoadExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, t.TempDir(), `
allowed_roots: ["~/src"]
providers:
  claude:
    binary: ~/.claude/local/claude
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(home, "src")}, cfg.AllowedRoots)
	assert.Equal(t, filepath.Join(home, ".claude/local/claude"), cfg.Provider("claude").Binary)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{name: "bad yaml", body: "listen: [", want: "parse config"},
		{name: "bad duration env", env: map[string]string{"AGENTGATE_MAX_TURN_DURATION": "soon"}, want: "AGENTGATE_MAX_TURN_DURATION"},
		{name: "zero grace", body: "grace_period: 0s", want: "grace_period"},
		{name: "log format", body: "log_format: xml", want: "log_format"},
		{name: "log level", body: "log_level: loud", want: "log_level"},
		{name: "default provider", body: "default_provider: gemini", want: "default_provider"},
		{name: "provider key", body: "providers:\n  gemini: {}", want: `unknown provider "gemini"`},
		{name: "relative root", body: "allowed_roots: [src]", want: "must be absolute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, t.TempDir(), tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWatcherReloads(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	path := writeConfig(t, t.TempDir(), "allowed_roots: ["+first+"]\n")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	go w.Run(ctx, func(cfg Config) {
		mu.Lock()
		got = cfg.AllowedRoots
		mu.Unlock()
	})

	// A broken edit is skipped; the next valid one is delivered.
	require.NoError(t, os.WriteFile(path, []byte("allowed_roots: [relative]\n"), 0o600))
	time.Sleep(3 * reloadDebounce)
	require.NoError(t, os.WriteFile(path, []byte("allowed_roots: ["+second+"]\n"), 0o600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == second
	}, 5*time.Second, 20*time.Millisecond)
}
