// Package agent drives the ReAct turn protocol: it calls the model, parses
// its tagged reply, gates and dispatches tool calls and feeds observations
// back until the model commits to a final answer.
package agent

import (
	"context"

	"github.com/nextlevelbuilder/goreact/internal/providers"
)

// CancelledResult is the fixed content of a run the user cancelled at the
// confirmation gate.
const CancelledResult = "operation cancelled by user"

// Agent is the core abstraction for an AI agent execution loop.
// Implemented by *Loop; extracted as an interface for testability and composability.
type Agent interface {
	ID() string
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
	IsRunning() bool
	Model() string
}

// RunRequest is one task for the loop.
type RunRequest struct {
	Task  string
	RunID string // generated when empty
}

// RunResult is the terminal state of a run.
type RunResult struct {
	RunID      string
	Outcome    Outcome
	Content    string // final answer, CancelledResult, or the fatal error text
	Turns      int    // model calls made
	Transcript []providers.Message
	Err        error // set when Outcome is OutcomeFatal
}

// Observer receives progress events from a run. All methods are called from
// the run's goroutine.
type Observer interface {
	OnModelCall(turn int)
	OnThought(thought string)
	OnAction(action Action, needsConfirmation bool)
	OnObservation(tool, text string, isError bool)
	OnFinalAnswer(answer string)
	OnCancelled()
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) OnModelCall(int)                    {}
func (NopObserver) OnThought(string)                   {}
func (NopObserver) OnAction(Action, bool)              {}
func (NopObserver) OnObservation(string, string, bool) {}
func (NopObserver) OnFinalAnswer(string)               {}
func (NopObserver) OnCancelled()                       {}
