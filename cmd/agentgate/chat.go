package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/spf13/cobra"

	"github.com/bazelment/agentgate/client"
	"github.com/bazelment/agentgate/protocol"
)

var (
	chatFlags    clientFlags
	chatProvider string
	chatSession  string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to an agent through a running gateway",
	Long: `With a message, run one turn and print the answer. Without one, start
an interactive session that resumes the provider session on every turn.

Interactive commands:
  /new              start a fresh session
  /provider <name>  switch provider (starts a fresh session)
  /session          print the current session id
  /exit             quit

Ctrl-C cancels the running turn.`,
	RunE: runChat,
}

func init() {
	chatFlags.register(chatCmd)
	chatCmd.Flags().StringVarP(&chatProvider, "provider", "p", "", "Provider name (default: the server's default)")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "Resume this provider session id")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	streamer := chatFlags.streamer(cfg)
	req := chatFlags.request("")
	req.Provider = chatProvider
	req.SessionID = chatSession

	renderer := newTurnRenderer(cmd.OutOrStdout(), os.Stderr, chatFlags.styled(), terminalWidth(os.Stdout), chatFlags.style)

	if len(args) > 0 {
		req.Message = strings.Join(args, " ")
		st := runTurn(cmd.Context(), streamer, req, renderer)
		if st.Phase != client.PhaseComplete {
			return turnError(st)
		}
		return nil
	}
	return chatLoop(cmd, streamer, req, renderer)
}

func chatLoop(cmd *cobra.Command, streamer client.Streamer, req protocol.ChatRequest, renderer *turnRenderer) error {
	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:      chatPrompt(req.Provider),
		HistoryFile: filepath.Join(filepath.Dir(configPath), "chat_history"),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	out := cmd.OutOrStdout()
	for {
		line, err := rl.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return nil
		case line == "/new":
			req.SessionID = ""
			fmt.Fprintln(out, "Started a new session.")
			continue
		case line == "/session":
			if req.SessionID == "" {
				fmt.Fprintln(out, "No session yet.")
			} else {
				fmt.Fprintln(out, req.SessionID)
			}
			continue
		case strings.HasPrefix(line, "/provider"):
			name := strings.TrimSpace(strings.TrimPrefix(line, "/provider"))
			req.Provider = name
			req.SessionID = ""
			rl.SetPrompt(chatPrompt(name))
			continue
		}

		req.Message = line
		st := runTurn(cmd.Context(), streamer, req, renderer)
		// The vendor session survives cancelled and failed turns.
		if st.SessionID != "" {
			req.SessionID = st.SessionID
		}
	}
}

// runTurn streams one turn, cancelling it on Ctrl-C.
func runTurn(ctx context.Context, streamer client.Streamer, req protocol.ChatRequest, renderer *turnRenderer) client.TurnState {
	renderer.reset()
	ctrl := client.NewController(client.WithOnUpdate(renderer.update))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			ctrl.Cancel()
		case <-done:
		}
	}()
	go renderer.tick(done)

	st := ctrl.Send(ctx, streamer, req)
	close(done)
	renderer.finish(st)
	return st
}

func turnError(st client.TurnState) error {
	switch st.Phase {
	case client.PhaseCancelled:
		return errors.New("turn cancelled")
	case client.PhaseErrored:
		return errors.New(st.Err)
	}
	return fmt.Errorf("turn ended in phase %s", st.Phase)
}

func chatPrompt(provider string) string {
	if provider == "" {
		return "› "
	}
	return provider + " › "
}

