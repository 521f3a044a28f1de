package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/bazelment/agentgate/provider"
)

var providersJSON bool

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers, their binaries and versions",
	Args:  cobra.NoArgs,
	RunE:  runProviders,
}

func init() {
	providersCmd.Flags().BoolVar(&providersJSON, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(providersCmd)
}

type providerStatus struct {
	Name      string `json:"name"`
	Display   string `json:"display_name"`
	Default   bool   `json:"default"`
	Available bool   `json:"available"`
	Binary    string `json:"binary,omitempty"`
	Version   string `json:"version,omitempty"`
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func runProviders(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	reg := buildRegistry(cfg, logger)

	var defaultName string
	if p := reg.Default(); p != nil {
		defaultName = p.Descriptor().Name
	}
	var rows []providerStatus
	for _, p := range reg.List() {
		d := p.Descriptor()
		row := providerStatus{Name: d.Name, Display: d.DisplayName, Default: d.Name == defaultName, Available: p.Available()}
		if loc, ok := p.(provider.Locatable); ok {
			if path, err := loc.BinaryPath(); err == nil {
				row.Binary = path
				row.Version = provider.Version(cmd.Context(), path)
			}
		}
		rows = append(rows, row)
	}

	out := cmd.OutOrStdout()
	if providersJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	renderProviders(out, rows, stdoutStyled())
	return nil
}

func renderProviders(w io.Writer, rows []providerStatus, styled bool) {
	header := []string{"NAME", "STATUS", "VERSION", "BINARY"}
	table := [][]string{header}
	for _, r := range rows {
		name := r.Name
		if r.Default {
			name += "*"
		}
		status := "available"
		if !r.Available {
			status = "not found"
		}
		table = append(table, []string{name, status, r.Version, r.Binary})
	}

	widths := make([]int, len(header))
	for _, row := range table {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for i, row := range table {
		cells := make([]string, len(row))
		for j, cell := range row {
			padded := runewidth.FillRight(cell, widths[j])
			if styled {
				switch {
				case i == 0:
					padded = headerStyle.Render(padded)
				case j == 1 && rows[i-1].Available:
					padded = okStyle.Render(padded)
				case j == 1:
					padded = missingStyle.Render(padded)
				}
			}
			cells[j] = padded
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}
