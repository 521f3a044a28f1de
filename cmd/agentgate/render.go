package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bazelment/agentgate/client"
)

const statusRefresh = 200 * time.Millisecond

var toolStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

// turnRenderer prints one turn: tool calls and a live status line on
// status, the final answer on out.
type turnRenderer struct {
	out      io.Writer
	status   io.Writer
	view     client.View
	markdown *client.MarkdownRenderer

	mu         sync.Mutex
	state      client.TurnState
	toolsShown int
	statusLive bool
}

func newTurnRenderer(out, status io.Writer, styled bool, width int, style string) *turnRenderer {
	r := &turnRenderer{
		out:    out,
		status: status,
		view:   client.View{Styled: styled, Width: width},
	}
	if styled {
		if md, err := client.NewMarkdownRenderer(width, style); err == nil {
			r.markdown = md
		}
	}
	return r
}

func (r *turnRenderer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = client.TurnState{}
	r.toolsShown = 0
	r.statusLive = false
}

// update is the controller's OnUpdate callback.
func (r *turnRenderer) update(st client.TurnState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = st
	for ; r.toolsShown < len(st.Tools); r.toolsShown++ {
		r.clearStatus()
		name := st.Tools[r.toolsShown].Name
		if r.view.Styled {
			name = toolStyle.Render("⏺ " + name)
		} else {
			name = "[tool] " + name
		}
		fmt.Fprintln(r.status, name)
	}
	r.drawStatus()
}

// tick redraws the status line until stop is closed.
func (r *turnRenderer) tick(stop <-chan struct{}) {
	if !r.view.Styled {
		return
	}
	ticker := time.NewTicker(statusRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			r.drawStatus()
			r.mu.Unlock()
		}
	}
}

func (r *turnRenderer) drawStatus() {
	if !r.view.Styled || r.state.Phase.Terminal() {
		return
	}
	fmt.Fprint(r.status, "\r\x1b[K"+r.view.StatusLine(r.state, time.Now()))
	r.statusLive = true
}

func (r *turnRenderer) clearStatus() {
	if r.statusLive {
		fmt.Fprint(r.status, "\r\x1b[K")
		r.statusLive = false
	}
}

// finish prints the answer and the final status.
func (r *turnRenderer) finish(st client.TurnState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearStatus()

	text := strings.TrimSpace(st.Text)
	if text != "" {
		if r.markdown != nil {
			if rendered, err := r.markdown.Render(text); err == nil {
				text = strings.TrimRight(rendered, "\n")
			}
		}
		fmt.Fprintln(r.out, text)
	}
	fmt.Fprintln(r.status, r.view.StatusLine(st, time.Now()))
}
