package client

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusLine(t *testing.T) {
	start := time.Unix(0, 0)
	now := start.Add(75 * time.Second)
	v := View{}

	assert.Equal(t, "idle", v.StatusLine(TurnState{}, now))
	assert.Equal(t, "using tool Bash · 1m15s",
		v.StatusLine(TurnState{Phase: PhaseUsingTool, LastTool: "Bash", StartedAt: start}, now))

	c := 0.01234
	assert.Equal(t, "complete · 5s · $0.0123", v.StatusLine(TurnState{
		Phase:      PhaseComplete,
		StartedAt:  start,
		FinishedAt: start.Add(5 * time.Second),
		CostUSD:    &c,
	}, now))
	assert.Equal(t, "errored · 0s · boom", v.StatusLine(TurnState{Phase: PhaseErrored, Err: "boom", StartedAt: now}, now))
}

func TestStatusLineTruncates(t *testing.T) {
	v := View{Width: 12}
	line := v.StatusLine(TurnState{Phase: PhaseErrored, Err: "a very long error message", StartedAt: time.Unix(0, 0)}, time.Unix(0, 0))
	assert.LessOrEqual(t, runewidth.StringWidth(line), 12)
	assert.True(t, strings.HasSuffix(line, "…"))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, "abcd\nef\ngh", wrap("abcdef\ngh", 4))
	assert.Equal(t, "日本\n語", wrap("日本語", 4))
}

func TestLanesPlain(t *testing.T) {
	out := View{Width: 80}.Lanes([]string{"claude", "codex"}, []TurnState{
		{Phase: PhaseComplete, Text: "one"},
		{Phase: PhaseResponding, Text: "two"},
	}, time.Unix(0, 0))
	assert.Contains(t, out, "claude\ncomplete")
	assert.Contains(t, out, "codex\nresponding")
	assert.Contains(t, out, "two")
}

func TestMarkdownRenderer(t *testing.T) {
	r, err := NewMarkdownRenderer(60, "dark")
	require.NoError(t, err)
	out, err := r.Render("# Title\n\nsome *text*")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "text")
}
