package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bazelment/agentgate/client"
	"github.com/bazelment/agentgate/config"
	"github.com/bazelment/agentgate/protocol"
)

// clientFlags are shared by the commands that talk to a running gateway.
type clientFlags struct {
	server    string
	token     string
	websocket bool
	cwd       string
	mode      string
	tools     []string
	model     string
	plain     bool
	style     string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", "", "Gateway base URL (default: derived from the config listen address)")
	cmd.Flags().StringVar(&f.token, "token", "", "Bearer token (default: auth_token from config)")
	cmd.Flags().BoolVar(&f.websocket, "ws", false, "Use the websocket transport instead of server-sent events")
	cmd.Flags().StringVar(&f.cwd, "cwd", "", "Working directory for the agent (default: current directory)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Permission mode: default, trust, acceptEdits, readOnly or plan")
	cmd.Flags().StringSliceVar(&f.tools, "tools", nil, "Tools the agent may use without asking")
	cmd.Flags().StringVar(&f.model, "model", "", "Model id passed to the provider")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "Disable colors and markdown rendering")
	cmd.Flags().StringVar(&f.style, "style", "auto", "Markdown style: dark, light or auto")
}

func (f *clientFlags) streamer(cfg config.Config) client.Streamer {
	base := f.server
	if base == "" {
		base = serverURL(cfg.Listen)
	}
	token := f.token
	if token == "" {
		token = cfg.AuthToken
	}
	if f.websocket {
		return &client.WSStreamer{BaseURL: base, Token: token}
	}
	return &client.HTTPStreamer{BaseURL: base, Token: token}
}

func (f *clientFlags) request(message string) protocol.ChatRequest {
	cwd := f.cwd
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	return protocol.ChatRequest{
		Message:        message,
		CWD:            cwd,
		PermissionMode: protocol.PermissionMode(f.mode),
		AllowedTools:   f.tools,
		Model:          f.model,
	}
}

func (f *clientFlags) styled() bool {
	return !f.plain && stdoutStyled()
}

func stdoutStyled() bool {
	return isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == ""
}

// serverURL turns a listen address into a URL a local client can dial.
func serverURL(listen string) string {
	host, port, ok := strings.Cut(listen, ":")
	if !ok {
		return "http://" + listen
	}
	if strings.Contains(port, ":") {
		// IPv6 literal without brackets; leave it alone.
		return "http://" + listen
	}
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "127.0.0.1"
	}
	return "http://" + host + ":" + port
}
