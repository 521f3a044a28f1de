package main

import (
	"log/slog"

	"github.com/bazelment/agentgate/config"
	"github.com/bazelment/agentgate/provider"
	"github.com/bazelment/agentgate/provider/claude"
	"github.com/bazelment/agentgate/provider/codex"
	"github.com/bazelment/agentgate/provider/cursor"
)

// buildRegistry registers every enabled adapter with its configured binary
// and environment.
func buildRegistry(cfg config.Config, logger *slog.Logger) *provider.Registry {
	reg := provider.NewRegistry(cfg.DefaultProvider)
	for _, name := range config.KnownProviders {
		pc := cfg.Provider(name)
		if !pc.IsEnabled() {
			logger.Debug("provider disabled", "provider", name)
			continue
		}
		var p provider.CliProvider
		switch name {
		case provider.ProviderClaude:
			p = claude.New(claude.WithBinary(pc.Binary), claude.WithEnv(pc.Env))
		case provider.ProviderCodex:
			p = codex.New(codex.WithBinary(pc.Binary), codex.WithEnv(pc.Env))
		case provider.ProviderCursor:
			p = cursor.New(cursor.WithBinary(pc.Binary), cursor.WithEnv(pc.Env))
		}
		reg.Register(p)
		logger.Debug("provider registered", "provider", name, "available", p.Available())
	}
	return reg
}
