package gateway

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bazelment/agentgate/protocol"
	"github.com/bazelment/agentgate/provider"
	"github.com/bazelment/agentgate/provider/claude"
)

// scriptProvider runs a shell script and parses its output as Claude
// stream-json.
type scriptProvider struct {
	name      string
	script    string
	binary    string
	available bool
	deltas    bool
	lastOpts  provider.BuildOptions
}

func (s *scriptProvider) Available() bool { return s.available }

func (s *scriptProvider) Descriptor() provider.Descriptor {
	return provider.Descriptor{Name: s.name, Capabilities: provider.Capabilities{TextDeltas: s.deltas}}
}

func (s *scriptProvider) BuildCommand(prompt string, opts provider.BuildOptions) provider.SpawnSpec {
	s.lastOpts = opts
	binary := s.binary
	if binary == "" {
		binary = "/bin/sh"
	}
	return provider.SpawnSpec{
		Binary: binary,
		Args:   []string{s.script, prompt},
		Env:    map[string]string{"PATH": os.Getenv("PATH")},
		Dir:    opts.CWD,
	}
}

func (s *scriptProvider) ParseEvent(line []byte) (protocol.Event, bool) {
	return claude.Parse(line)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

type recordingSink struct {
	mu     sync.Mutex
	frames []string
	onSend func(payload []byte)
}

func (r *recordingSink) WriteFrame(payload []byte) error {
	r.mu.Lock()
	r.frames = append(r.frames, string(payload))
	r.mu.Unlock()
	if r.onSend != nil {
		r.onSend(payload)
	}
	return nil
}

func (r *recordingSink) Frames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frames...)
}

func newTestGateway(t *testing.T, p *scriptProvider, mutate ...func(*Config)) *Gateway {
	t.Helper()
	reg := provider.NewRegistry(p.name)
	reg.Register(p)
	cfg := Config{
		Registry:        reg,
		Workspace:       NewRootsPolicy([]string{t.TempDir()}),
		GracePeriod:     200 * time.Millisecond,
		MaxTurnDuration: 10 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg)
}

func runScript(t *testing.T, body string, mutate ...func(*Config)) (Summary, []string) {
	t.Helper()
	p := &scriptProvider{name: "claude", script: writeScript(t, body), available: true}
	g := newTestGateway(t, p, mutate...)
	turn, err := g.Prepare(protocol.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	sink := &recordingSink{}
	sum := turn.Run(context.Background(), sink)
	return sum, sink.Frames()
}
