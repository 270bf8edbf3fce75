package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"
)

// Decision is the user's answer to a confirmation request.
type Decision int

const (
	DecisionDeclined Decision = iota
	DecisionApproved
)

func (d Decision) String() string {
	if d == DecisionApproved {
		return "approved"
	}
	return "declined"
}

// ConfirmRequest describes a pending mutating tool call.
type ConfirmRequest struct {
	Tool        string
	Description string
	Params      map[string]interface{}
}

// Summary renders the request as one line for prompts and logs.
func (r ConfirmRequest) Summary() string {
	params, err := json.Marshal(r.Params)
	if err != nil || r.Params == nil {
		params = []byte("{}")
	}
	return fmt.Sprintf("%s %s", r.Tool, params)
}

// Gate asks for an explicit decision before a mutating tool runs.
type Gate interface {
	Confirm(ctx context.Context, req ConfirmRequest) (Decision, error)
}

// AutoGate approves everything. Used with --yes.
type AutoGate struct{}

func (AutoGate) Confirm(context.Context, ConfirmRequest) (Decision, error) {
	return DecisionApproved, nil
}

// LineGate writes a y/n question to Out and reads one line from In.
// Only "y" or "yes" (any case) approve; anything else, including EOF, declines.
type LineGate struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewLineGate creates a gate over the given reader and writer.
func NewLineGate(in io.Reader, out io.Writer) *LineGate {
	return &LineGate{in: bufio.NewReader(in), out: out}
}

func (g *LineGate) Confirm(ctx context.Context, req ConfirmRequest) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return DecisionDeclined, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	fmt.Fprintf(g.out, "\nRun %s? (y/n): ", req.Summary())
	line, err := g.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return DecisionDeclined, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return DecisionApproved, nil
	default:
		return DecisionDeclined, nil
	}
}

// PromptGate asks with an interactive huh confirm form. Aborting the form
// (Ctrl+C or Esc) declines.
type PromptGate struct{}

func (PromptGate) Confirm(ctx context.Context, req ConfirmRequest) (Decision, error) {
	approve := false

	desc := "Parameters: " + strings.TrimPrefix(req.Summary(), req.Tool+" ")
	if req.Description != "" {
		desc = req.Description + "\n" + desc
	}

	c := huh.NewConfirm().
		Title(fmt.Sprintf("Run tool %q?", req.Tool)).
		Description(desc).
		Affirmative("Yes").
		Negative("No").
		Value(&approve)

	err := huh.NewForm(huh.NewGroup(c)).WithShowHelp(true).RunWithContext(ctx)
	switch {
	case errors.Is(err, huh.ErrUserAborted):
		return DecisionDeclined, nil
	case err != nil:
		return DecisionDeclined, err
	}
	if approve {
		return DecisionApproved, nil
	}
	return DecisionDeclined, nil
}
