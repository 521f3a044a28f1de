package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/bazelment/agentgate/client"
)

var (
	compareFlags     clientFlags
	compareProviders []string
)

var compareCmd = &cobra.Command{
	Use:   "compare <message>",
	Short: "Send one prompt to several providers side by side",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCompare,
}

func init() {
	compareFlags.register(compareCmd)
	compareCmd.Flags().StringSliceVar(&compareProviders, "providers", []string{"claude", "codex"}, "Providers to compare")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	if len(compareProviders) == 0 {
		return errors.New("--providers must name at least one provider")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := setupContext()
	defer cancel()

	styled := compareFlags.styled()
	view := client.View{Styled: styled, Width: terminalWidth(os.Stdout)}
	req := compareFlags.request(strings.Join(args, " "))

	var mu sync.Mutex
	states := make([]client.TurnState, len(compareProviders))
	progress := func() {
		parts := make([]string, len(states))
		for i, st := range states {
			parts[i] = compareProviders[i] + ": " + client.View{}.StatusLine(st, time.Now())
		}
		fmt.Fprint(os.Stderr, "\r\x1b[K"+strings.Join(parts, " | "))
	}

	final := client.Compare(ctx, compareFlags.streamer(cfg), req, compareProviders, func(lane int, st client.TurnState) {
		mu.Lock()
		defer mu.Unlock()
		states[lane] = st
		if styled {
			progress()
		}
	})
	if styled {
		fmt.Fprint(os.Stderr, "\r\x1b[K")
	}

	fmt.Fprintln(cmd.OutOrStdout(), view.Lanes(compareProviders, final, time.Now()))

	for _, st := range final {
		if st.Phase == client.PhaseComplete {
			return nil
		}
	}
	return errors.New("no provider completed the turn")
}
