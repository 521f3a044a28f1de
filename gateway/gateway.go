// Package gateway runs one chat turn per request: it validates the request,
// spawns the provider CLI, forwards each parsed stdout line as a frame and
// guarantees the process is reaped and the stream ends with [DONE].
package gateway

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bazelment/agentgate/protocol"
	"github.com/bazelment/agentgate/provider"
)

// Defaults for Config fields left zero.
const (
	DefaultGracePeriod     = 5 * time.Second
	DefaultMaxTurnDuration = 30 * time.Minute
	DefaultStderrLimit     = 64 << 10
	DefaultMaxLineBytes    = 32 << 20
	DefaultDrainTimeout    = time.Second
)

// Config configures a Gateway.
type Config struct {
	Registry  *provider.Registry
	Workspace WorkspacePolicy
	Logger    *slog.Logger

	// GracePeriod is how long a cancelled CLI gets between SIGTERM and
	// SIGKILL.
	GracePeriod time.Duration
	// MaxTurnDuration bounds a turn from spawn to exit.
	MaxTurnDuration time.Duration
	// StderrLimit caps how much stderr is kept for error reporting.
	StderrLimit int
	// MaxLineBytes caps a single stdout line. Longer lines are dropped.
	MaxLineBytes int
	// DrainTimeout is how long output may stay open after the CLI exited.
	// Descendants still holding it are then killed with the process group.
	DrainTimeout time.Duration
}

// Gateway turns chat requests into provider CLI invocations.
type Gateway struct {
	cfg    Config
	logger *slog.Logger
}

// New returns a Gateway. A nil Workspace rejects every cwd.
func New(cfg Config) *Gateway {
	if cfg.Registry == nil {
		cfg.Registry = provider.NewRegistry("")
	}
	if cfg.Workspace == nil {
		cfg.Workspace = NewRootsPolicy(nil)
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.MaxTurnDuration <= 0 {
		cfg.MaxTurnDuration = DefaultMaxTurnDuration
	}
	if cfg.StderrLimit <= 0 {
		cfg.StderrLimit = DefaultStderrLimit
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = DefaultMaxLineBytes
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{cfg: cfg, logger: logger}
}

// Registry returns the provider registry the gateway resolves from.
func (g *Gateway) Registry() *provider.Registry {
	return g.cfg.Registry
}

// Turn is a validated request bound to a provider and a fresh SpawnSpec.
type Turn struct {
	ID       string
	Provider provider.CliProvider
	Spec     provider.SpawnSpec

	gw *Gateway
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]*$`)

// Prepare validates req and builds the command for it. Every error it
// returns is a *ValidationError or a *ProviderUnavailableError; no process
// has been started.
func (g *Gateway) Prepare(req protocol.ChatRequest) (*Turn, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, &ValidationError{Field: "message", Message: "must not be empty"}
	}
	if strings.ContainsRune(req.Message, 0) {
		return nil, &ValidationError{Field: "message", Message: "must not contain NUL bytes"}
	}
	mode, err := protocol.ParsePermissionMode(string(req.PermissionMode))
	if err != nil {
		return nil, &ValidationError{Field: "permissionMode", Message: err.Error()}
	}
	if err := provider.ValidateToolNames(req.AllowedTools); err != nil {
		return nil, &ValidationError{Field: "allowedTools", Message: err.Error()}
	}
	if req.SessionID != "" && !sessionIDPattern.MatchString(req.SessionID) {
		return nil, &ValidationError{Field: "sessionId", Message: "contains unsupported characters"}
	}
	if req.Model != "" && (strings.HasPrefix(req.Model, "-") || strings.ContainsAny(req.Model, "\x00\n")) {
		return nil, &ValidationError{Field: "model", Message: "is not a model name"}
	}

	var dir string
	if req.CWD != "" {
		dir, err = g.cfg.Workspace.Resolve(req.CWD)
		if err != nil {
			return nil, &ValidationError{Field: "cwd", Message: err.Error()}
		}
	}

	p, err := g.cfg.Registry.Resolve(req.Provider)
	if err != nil {
		return nil, &ValidationError{Field: "provider", Message: err.Error()}
	}
	name := p.Descriptor().Name
	if !p.Available() {
		return nil, &ProviderUnavailableError{Provider: name, Reason: "binary not found"}
	}

	spec := p.BuildCommand(req.Message, provider.BuildOptions{
		SessionID:      req.SessionID,
		Model:          req.Model,
		PermissionMode: mode,
		AllowedTools:   req.AllowedTools,
		CWD:            dir,
	})
	return &Turn{
		ID:       uuid.NewString(),
		Provider: p,
		Spec:     spec,
		gw:       g,
	}, nil
}
