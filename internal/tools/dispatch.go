package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/goreact/internal/mcp"
)

// Dispatcher executes tool calls against the channel and normalizes every
// outcome, including failures, into a Result. It never returns an error.
type Dispatcher struct {
	registry  *Registry
	invoker   Invoker
	maxChars  int
	scrubbing bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMaxObservationChars overrides the output cap (0 disables truncation).
func WithMaxObservationChars(n int) DispatcherOption {
	return func(d *Dispatcher) { d.maxChars = n }
}

// WithScrubbing enables or disables credential scrubbing on tool output.
func WithScrubbing(enabled bool) DispatcherOption {
	return func(d *Dispatcher) { d.scrubbing = enabled }
}

// NewDispatcher creates a dispatcher over registry and invoker.
func NewDispatcher(registry *Registry, invoker Invoker, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		invoker:   invoker,
		maxChars:  DefaultMaxObservationChars,
		scrubbing: true,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch invokes the named tool.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params map[string]interface{}) *Result {
	if _, ok := d.registry.Resolve(name); !ok {
		text := fmt.Sprintf("unknown tool: %s (available tools: %s)", name, strings.Join(d.registry.Names(), ", "))
		slog.Warn("tool dispatch: unknown tool", "tool", name)
		return &Result{Kind: ResultUnknownTool, Tool: name, Text: text}
	}

	start := time.Now()
	out, err := d.invoker.Invoke(ctx, name, params)
	duration := time.Since(start)

	res := classify(name, out, err)
	if d.scrubbing {
		res.Text = ScrubCredentials(res.Text)
	}
	res.Text = TruncateOutput(res.Text, d.maxChars)

	slog.Debug("tool executed",
		"tool", name,
		"duration_ms", duration.Milliseconds(),
		"result", res.Kind.String(),
		"chars", len(res.Text),
	)
	return res
}

func classify(name, out string, err error) *Result {
	if err == nil {
		return &Result{Kind: ResultOK, Tool: name, Text: out}
	}

	var tie *mcp.ToolInvocationError
	if errors.As(err, &tie) {
		return &Result{Kind: ResultToolError, Tool: name, Text: tie.Text, Err: err}
	}
	return &Result{Kind: ResultTransportError, Tool: name, Text: err.Error(), Err: err}
}
