// Package config loads agentgate's YAML configuration and environment
// overrides, and watches the file for workspace root changes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bazelment/agentgate/provider"
)

const (
	defaultListen          = "127.0.0.1:8787"
	defaultGracePeriod     = 5 * time.Second
	defaultMaxTurnDuration = 30 * time.Minute
	defaultStderrLimit     = 64 << 10
	defaultMaxRequestBytes = 1 << 20
	envPrefix              = "AGENTGATE_"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// KnownProviders are the provider names accepted under providers:.
var KnownProviders = []string{provider.ProviderClaude, provider.ProviderCodex, provider.ProviderCursor}

// ProviderConfig overrides how one provider CLI is found and run.
type ProviderConfig struct {
	Binary  string            `yaml:"binary"`
	Enabled *bool             `yaml:"enabled"`
	Env     map[string]string `yaml:"env"`
}

// IsEnabled reports whether the provider should be registered. Providers
// are enabled unless explicitly disabled.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Config is the gateway configuration.
type Config struct {
	Listen          string                    `yaml:"listen"`
	AuthToken       string                    `yaml:"auth_token"`
	DefaultProvider string                    `yaml:"default_provider"`
	AllowedRoots    []string                  `yaml:"allowed_roots"`
	GracePeriod     time.Duration             `yaml:"grace_period"`
	MaxTurnDuration time.Duration             `yaml:"max_turn_duration"`
	StderrLimit     int                       `yaml:"stderr_limit"`
	MaxRequestBytes int64                     `yaml:"max_request_bytes"`
	LogLevel        string                    `yaml:"log_level"`
	LogFormat       LogFormat                 `yaml:"log_format"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
}

// DefaultPath returns ~/.agentgate/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".agentgate", "config.yaml")
	}
	return filepath.Join(home, ".agentgate", "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() Config {
	var roots []string
	if home, err := os.UserHomeDir(); err == nil {
		roots = []string{home}
	}
	return Config{
		Listen:          defaultListen,
		DefaultProvider: provider.ProviderClaude,
		AllowedRoots:    roots,
		GracePeriod:     defaultGracePeriod,
		MaxTurnDuration: defaultMaxTurnDuration,
		StderrLimit:     defaultStderrLimit,
		MaxRequestBytes: defaultMaxRequestBytes,
		LogLevel:        "info",
		LogFormat:       LogFormatText,
	}
}

// Load reads path over the defaults, applies AGENTGATE_* environment
// overrides and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := env("LISTEN"); v != "" {
		c.Listen = v
	}
	if v := env("AUTH_TOKEN"); v != "" {
		c.AuthToken = v
	}
	if v := env("DEFAULT_PROVIDER"); v != "" {
		c.DefaultProvider = v
	}
	if v := env("ALLOWED_ROOTS"); v != "" {
		c.AllowedRoots = filepath.SplitList(v)
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		c.LogFormat = LogFormat(v)
	}
	for key, dst := range map[string]*time.Duration{
		"GRACE_PERIOD":      &c.GracePeriod,
		"MAX_TURN_DURATION": &c.MaxTurnDuration,
	} {
		v := env(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", envPrefix, key, err)
		}
		*dst = d
	}
	if v := env("STDERR_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sSTDERR_LIMIT: %w", envPrefix, err)
		}
		c.StderrLimit = n
	}
	if v := env("MAX_REQUEST_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %sMAX_REQUEST_BYTES: %w", envPrefix, err)
		}
		c.MaxRequestBytes = n
	}
	for _, name := range KnownProviders {
		v := env(strings.ToUpper(name) + "_BINARY")
		if v == "" {
			continue
		}
		if c.Providers == nil {
			c.Providers = map[string]ProviderConfig{}
		}
		pc := c.Providers[name]
		pc.Binary = v
		c.Providers[name] = pc
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func (c *Config) expandPaths() {
	for i, root := range c.AllowedRoots {
		c.AllowedRoots[i] = expandHome(root)
	}
	for name, pc := range c.Providers {
		if pc.Binary != "" {
			pc.Binary = expandHome(pc.Binary)
			c.Providers[name] = pc
		}
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate checks the configuration for values the gateway cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("validate config: listen is required")
	}
	if c.GracePeriod <= 0 {
		return errors.New("validate config: grace_period must be > 0")
	}
	if c.MaxTurnDuration <= 0 {
		return errors.New("validate config: max_turn_duration must be > 0")
	}
	if c.StderrLimit <= 0 {
		return errors.New("validate config: stderr_limit must be > 0")
	}
	if c.MaxRequestBytes <= 0 {
		return errors.New("validate config: max_request_bytes must be > 0")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("validate config: unsupported log_format %q (allowed: %q, %q)", c.LogFormat, LogFormatText, LogFormatJSON)
	}
	if !isKnownProvider(c.DefaultProvider) {
		return fmt.Errorf("validate config: unknown default_provider %q", c.DefaultProvider)
	}
	for name := range c.Providers {
		if !isKnownProvider(name) {
			return fmt.Errorf("validate config: unknown provider %q", name)
		}
	}
	for _, root := range c.AllowedRoots {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("validate config: allowed root %q must be absolute", root)
		}
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("validate config: unsupported log_level %q", c.LogLevel)
	}
	return level, nil
}

// Provider returns the settings for name, zero if unset.
func (c Config) Provider(name string) ProviderConfig {
	return c.Providers[name]
}

func isKnownProvider(name string) bool {
	for _, known := range KnownProviders {
		if name == known {
			return true
		}
	}
	return false
}
