package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/bazelment/agentgate/config"
	"github.com/bazelment/agentgate/gateway"
	"github.com/bazelment/agentgate/server"
)

const shutdownSlack = 5 * time.Second

var (
	serveListen   string
	generateToken bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway HTTP server",
	Long: `Serve POST /api/chat (server-sent events), GET /api/chat/ws
(websocket), GET /api/providers and GET /healthz.

Changes to allowed_roots in the config file apply without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides config)")
	serveCmd.Flags().BoolVar(&generateToken, "generate-token", false, "Print a random auth token and exit")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if generateToken {
		token, err := server.GenerateToken()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}

	reg := buildRegistry(cfg, logger)
	roots := gateway.NewRootsPolicy(cfg.AllowedRoots)
	gw := gateway.New(gateway.Config{
		Registry:        reg,
		Workspace:       roots,
		Logger:          logger,
		GracePeriod:     cfg.GracePeriod,
		MaxTurnDuration: cfg.MaxTurnDuration,
		StderrLimit:     cfg.StderrLimit,
	})
	srv := server.New(server.Config{
		Gateway:         gw,
		Logger:          logger,
		AuthToken:       cfg.AuthToken,
		MaxRequestBytes: cfg.MaxRequestBytes,
	})

	ctx, cancel := setupContext()
	defer cancel()

	if w, err := config.NewWatcher(configPath, logger); err != nil {
		logger.Warn("config watch disabled", "path", configPath, "error", err)
	} else {
		go w.Run(ctx, func(next config.Config) {
			roots.SetRoots(next.AllowedRoots)
			logger.Info("allowed roots updated", "roots", roots.Roots())
		})
	}

	// In-flight turns see their request context cancelled on shutdown, so
	// every CLI is terminated before Shutdown returns.
	turnsCtx, cancelTurns := context.WithCancel(context.Background())
	defer cancelTurns()
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return turnsCtx },
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}
	var available []string
	for _, p := range reg.ListAvailable() {
		available = append(available, p.Descriptor().Name)
	}
	logger.Info("agentgate listening",
		"addr", ln.Addr().String(),
		"available_providers", available,
		"allowed_roots", roots.Roots(),
		"auth", cfg.AuthToken != "",
	)
	if cfg.AuthToken == "" {
		logger.Warn("auth_token is not set; any local process can run agents through this server")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(ln) }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	cancelTurns()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.GracePeriod+shutdownSlack)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("agentgate stopped")
	return nil
}
