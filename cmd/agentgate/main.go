// Command agentgate serves coding agent CLIs behind one streaming HTTP
// protocol and talks to such a server from the terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bazelment/agentgate/config"
	"github.com/bazelment/agentgate/logging"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "agentgate",
	Short: "Stream coding agent CLIs over HTTP",
	Long: `agentgate runs Claude Code, Codex and Cursor Agent as subprocesses
and streams their output to clients as one canonical event protocol.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return logging.New(os.Stderr, logging.Level(level, verbose), string(cfg.LogFormat), !isTerminal(os.Stderr))
}

// setupContext returns a context cancelled on the first SIGINT or SIGTERM.
// A second signal exits immediately.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(os.Stderr, "\nReceived signal %v, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
			signal.Stop(sigCh)
			return
		}
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived second signal %v, forcing exit\n", sig)
		os.Exit(1)
	}()

	return ctx, cancel
}
