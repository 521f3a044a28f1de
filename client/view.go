package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	phaseStyles = map[Phase]lipgloss.Style{
		PhaseConnecting: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		PhaseThinking:   lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		PhaseUsingTool:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		PhaseResponding: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		PhaseComplete:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		PhaseCancelled:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		PhaseErrored:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	laneHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	laneStyle       = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// View renders turn state for a terminal. A zero-value View renders plain
// text.
type View struct {
	Styled bool
	Width  int
}

// StatusLine renders a one-line summary such as
// "using tool Bash · 12s · $0.0123".
func (v View) StatusLine(st TurnState, now time.Time) string {
	parts := []string{v.phase(st.Phase)}
	if st.Phase == PhaseUsingTool && st.LastTool != "" {
		parts[0] += " " + st.LastTool
	}
	if st.Phase != PhaseIdle {
		parts = append(parts, formatElapsed(st.Elapsed(now)))
	}
	if st.CostUSD != nil {
		parts = append(parts, fmt.Sprintf("$%.4f", *st.CostUSD))
	}
	if st.Phase == PhaseErrored && st.Err != "" {
		parts = append(parts, st.Err)
	}
	line := strings.Join(parts, " · ")
	if v.Width > 0 {
		line = truncate(line, v.Width)
	}
	if v.Styled {
		return dimStyle.Render(line)
	}
	return line
}

func (v View) phase(p Phase) string {
	if !v.Styled {
		return p.String()
	}
	style, ok := phaseStyles[p]
	if !ok {
		return p.String()
	}
	return style.Render(p.String())
}

// Lanes renders compare results as side-by-side columns.
func (v View) Lanes(providers []string, states []TurnState, now time.Time) string {
	if len(states) == 0 {
		return ""
	}
	width := v.Width
	if width <= 0 {
		width = 120
	}
	colWidth := width/len(states) - 4
	if colWidth < 20 {
		colWidth = 20
	}
	inner := View{Styled: v.Styled, Width: colWidth}

	cols := make([]string, len(states))
	for i, st := range states {
		name := providers[i]
		body := wrap(st.Text, colWidth)
		status := inner.StatusLine(st, now)
		if !v.Styled {
			cols[i] = name + "\n" + status + "\n\n" + body
			continue
		}
		content := laneHeaderStyle.Render(name) + "\n" + status + "\n\n" + body
		cols[i] = laneStyle.Width(colWidth + 2).Render(content)
	}
	if !v.Styled {
		return strings.Join(cols, "\n\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

// truncate shortens s to at most width display columns.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// wrap hard-wraps s at width display columns.
func wrap(s string, width int) string {
	var b strings.Builder
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		col := 0
		for _, r := range line {
			w := runewidth.RuneWidth(r)
			if col+w > width {
				b.WriteByte('\n')
				col = 0
			}
			b.WriteRune(r)
			col += w
		}
	}
	return b.String()
}

// MarkdownRenderer wraps glamour for rendering final answers.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer wrapping at width. style is
// "dark", "light" or "auto".
func NewMarkdownRenderer(width int, style string) (*MarkdownRenderer, error) {
	r, err := glamour.NewTermRenderer(
		glamourOption(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &MarkdownRenderer{renderer: r}, nil
}

// Render renders markdown text for terminal display.
func (m *MarkdownRenderer) Render(text string) (string, error) {
	return m.renderer.Render(text)
}

func glamourOption(style string) glamour.TermRendererOption {
	switch style {
	case "dark":
		return glamour.WithStandardStyle("dark")
	case "light":
		return glamour.WithStandardStyle("light")
	default:
		return glamour.WithAutoStyle()
	}
}
