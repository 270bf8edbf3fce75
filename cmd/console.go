package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nextlevelbuilder/goreact/internal/agent"
)

const consolePreviewChars = 800

var (
	colorThought  = lipgloss.Color("#2196F3")
	colorAction   = lipgloss.Color("#FFC107")
	colorSuccess  = lipgloss.Color("#8BC34A")
	colorError    = lipgloss.Color("#e53935")
	colorMuted    = lipgloss.Color("#7d8590")
	colorAccented = lipgloss.Color("#101F38")
)

// console prints run progress to a terminal. It implements agent.Observer.
type console struct {
	w io.Writer

	turn    lipgloss.Style
	thought lipgloss.Style
	action  lipgloss.Style
	confirm lipgloss.Style
	okObs   lipgloss.Style
	errObs  lipgloss.Style
	answer  lipgloss.Style
	muted   lipgloss.Style
}

func newConsole(w io.Writer) *console {
	return &console{
		w:       w,
		turn:    lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		thought: lipgloss.NewStyle().Foreground(colorThought),
		action:  lipgloss.NewStyle().Foreground(colorAction).Bold(true),
		confirm: lipgloss.NewStyle().Foreground(colorAccented).Background(colorAction).Padding(0, 1),
		okObs:   lipgloss.NewStyle().Foreground(colorSuccess),
		errObs:  lipgloss.NewStyle().Foreground(colorError),
		answer: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSuccess).
			Padding(0, 1),
		muted: lipgloss.NewStyle().Foreground(colorMuted),
	}
}

func (c *console) OnModelCall(turn int) {
	fmt.Fprintln(c.w, c.turn.Render(fmt.Sprintf("turn %d: waiting for the model...", turn)))
}

func (c *console) OnThought(thought string) {
	fmt.Fprintln(c.w, c.thought.Render("💭 Thought: ")+strings.TrimSpace(thought))
}

func (c *console) OnAction(action agent.Action, needsConfirmation bool) {
	params, err := json.Marshal(action.Parameters)
	if err != nil {
		params = []byte("{}")
	}
	line := c.action.Render("🔧 Action: "+action.Name) + " " + c.muted.Render(string(params))
	if needsConfirmation {
		line += " " + c.confirm.Render("needs confirmation")
	}
	fmt.Fprintln(c.w, line)
}

func (c *console) OnObservation(tool, text string, isError bool) {
	style, label := c.okObs, "🔍 Observation"
	if isError {
		style, label = c.errObs, "⚠️ Observation"
	}
	fmt.Fprintln(c.w, style.Render(label+" ("+tool+"): ")+preview(text, consolePreviewChars))
}

func (c *console) OnFinalAnswer(answer string) {
	fmt.Fprintln(c.w, c.answer.Render("✅ "+strings.TrimSpace(answer)))
}

func (c *console) OnCancelled() {
	fmt.Fprintln(c.w, c.errObs.Render("✋ "+agent.CancelledResult))
}

// preview shortens s to at most n runes for display.
func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + fmt.Sprintf("... (%d more chars)", len(r)-n)
}

var _ agent.Observer = (*console)(nil)
