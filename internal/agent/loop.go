package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nextlevelbuilder/goreact/internal/providers"
	"github.com/nextlevelbuilder/goreact/internal/tools"
)

// ToolDispatcher runs one tool call and never fails; errors come back as a
// failed Result.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, params map[string]interface{}) *tools.Result
}

// LoopConfig wires a Loop. Provider, Registry and Dispatcher are required to Run.
type LoopConfig struct {
	ID         string
	Provider   providers.Provider
	Model      string // empty = provider default
	Registry   *tools.Registry
	Dispatcher ToolDispatcher

	// Gate confirms mutating tool calls. Nil declines every such call.
	Gate tools.Gate

	PromptTemplate  string // empty = DefaultPromptTemplate
	OperatingSystem string // empty = host OS
	Workspace       string // shown to the model as the current directory

	MaxTurns     int  // 0 = unbounded
	SendToolDefs bool // pass the tool list to the model API as function tools

	InputGuard      *InputGuard // nil = default guard unless InjectionAction is "off"
	InjectionAction string      // off|log|warn|block, default warn

	Observer Observer     // nil = NopObserver
	Tracer   trace.Tracer // nil = no-op
}

// Loop runs tasks through the ReAct state machine. Each Run is strictly
// sequential; a Loop may serve several runs one after another.
type Loop struct {
	id              string
	provider        providers.Provider
	model           string
	registry        *tools.Registry
	dispatcher      ToolDispatcher
	gate            tools.Gate
	promptTemplate  string
	operatingSystem string
	workspace       string
	maxTurns        int
	sendToolDefs    bool
	inputGuard      *InputGuard
	injectionAction string
	observer        Observer
	tracer          trace.Tracer

	activeRuns atomic.Int32
}

// NewLoop applies defaults to cfg.
func NewLoop(cfg LoopConfig) *Loop {
	action := cfg.InjectionAction
	switch action {
	case GuardOff, GuardLog, GuardWarn, GuardBlock:
	default:
		action = GuardWarn
	}
	guard := cfg.InputGuard
	if guard == nil && action != GuardOff {
		guard = NewInputGuard()
	}

	model := cfg.Model
	if model == "" && cfg.Provider != nil {
		model = cfg.Provider.DefaultModel()
	}
	tmpl := cfg.PromptTemplate
	if tmpl == "" {
		tmpl = DefaultPromptTemplate
	}
	osName := cfg.OperatingSystem
	if osName == "" {
		osName = HostOperatingSystem()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("goreact/agent")
	}

	return &Loop{
		id:              cfg.ID,
		provider:        cfg.Provider,
		model:           model,
		registry:        cfg.Registry,
		dispatcher:      cfg.Dispatcher,
		gate:            cfg.Gate,
		promptTemplate:  tmpl,
		operatingSystem: osName,
		workspace:       cfg.Workspace,
		maxTurns:        cfg.MaxTurns,
		sendToolDefs:    cfg.SendToolDefs,
		inputGuard:      guard,
		injectionAction: action,
		observer:        observer,
		tracer:          tracer,
	}
}

func (l *Loop) ID() string      { return l.id }
func (l *Loop) Model() string   { return l.model }
func (l *Loop) IsRunning() bool { return l.activeRuns.Load() > 0 }

// Run drives one task to a terminal state. A final answer or a cancellation
// returns a nil error; any fatal outcome returns the cause, which is also
// recorded in RunResult.Err.
func (l *Loop) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	l.activeRuns.Add(1)
	defer l.activeRuns.Add(-1)

	ctx, span := l.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agent.id", l.id),
		attribute.String("run.id", runID),
		attribute.String("llm.model", l.model),
	))
	defer span.End()

	slog.Info("agent run started", "agent", l.id, "run", runID, "model", l.model)

	r := &run{loop: l, id: runID, span: span, result: &RunResult{RunID: runID}}
	return r.execute(ctx, req.Task)
}

// run is the mutable state of one Run call.
type run struct {
	loop       *Loop
	id         string
	span       trace.Span
	state      State
	transcript *Transcript
	result     *RunResult
}

func (r *run) execute(ctx context.Context, task string) (*RunResult, error) {
	l := r.loop
	if l.provider == nil || l.registry == nil || l.dispatcher == nil {
		return r.fatal(errors.New("agent loop requires a provider, a tool registry and a dispatcher"))
	}
	if err := l.inputGuard.Apply(r.id, task, l.injectionAction); err != nil {
		return r.fatal(err)
	}

	system, err := RenderPrompt(l.promptTemplate, PromptData{
		ToolList:         l.registry.Render(),
		OperatingSystem:  l.operatingSystem,
		CurrentDirectory: l.workspace,
	})
	if err != nil {
		return r.fatal(err)
	}
	r.transcript = NewTranscript(system, task)

	var defs []providers.ToolDefinition
	if l.sendToolDefs && l.registry.Count() > 0 {
		defs = l.registry.ProviderDefs()
	}

	for {
		if err := ctx.Err(); err != nil {
			return r.fatal(err)
		}
		if l.maxTurns > 0 && r.result.Turns >= l.maxTurns {
			return r.fatal(&ProtocolViolation{
				Reason: fmt.Sprintf("turn limit of %d reached without a final answer", l.maxTurns),
			})
		}

		r.enter(StateAwaitModel)
		content, err := r.callModel(ctx, defs)
		if err != nil {
			return r.fatal(err)
		}

		r.enter(StateParsed)
		resp, err := ParseResponse(content)
		if err != nil {
			return r.fatal(err)
		}
		if resp.HasThought {
			l.observer.OnThought(resp.Thought)
		}
		if resp.Kind == KindFinalAnswer {
			l.observer.OnFinalAnswer(resp.FinalAnswer)
			return r.finish(OutcomeFinalAnswer, resp.FinalAnswer), nil
		}

		action := *resp.Action
		desc, known := l.registry.Resolve(action.Name)
		needsConfirm := known && tools.RequiresConfirmation(desc)
		l.observer.OnAction(action, needsConfirm)

		if needsConfirm {
			r.enter(StateConfirming)
			decision, err := r.confirm(ctx, desc, action)
			if err != nil {
				return r.fatal(fmt.Errorf("confirmation: %w", err))
			}
			if decision != tools.DecisionApproved {
				l.observer.OnCancelled()
				return r.finish(OutcomeCancelled, CancelledResult), nil
			}
		}

		r.enter(StateDispatching)
		obs := r.dispatch(ctx, action)
		if err := r.transcript.AppendObservation(obs); err != nil {
			return r.fatal(err)
		}
	}
}

func (r *run) enter(s State) {
	slog.Debug("agent state", "run", r.id, "from", r.state.String(), "to", s.String())
	r.state = s
}

func (r *run) callModel(ctx context.Context, defs []providers.ToolDefinition) (string, error) {
	l := r.loop
	turn := r.result.Turns + 1
	l.observer.OnModelCall(turn)

	ctx, span := l.tracer.Start(ctx, "llm.chat", trace.WithAttributes(
		attribute.String("llm.provider", l.provider.Name()),
		attribute.String("llm.model", l.model),
		attribute.Int("agent.turn", turn),
	))
	defer span.End()

	start := time.Now()
	resp, err := l.provider.Chat(ctx, providers.ChatRequest{
		Model:    l.model,
		Messages: r.transcript.Messages(),
		Tools:    defs,
	})
	r.result.Turns = turn
	if err != nil {
		var mce *providers.ModelCallError
		if !errors.As(err, &mce) {
			err = &providers.ModelCallError{Provider: l.provider.Name(), Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("turn %d: %w", turn, err)
	}

	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", resp.Usage.CompletionTokens),
	)
	slog.Debug("model turn complete",
		"run", r.id,
		"turn", turn,
		"duration_ms", time.Since(start).Milliseconds(),
		"chars", len(resp.Content),
		"finish_reason", resp.FinishReason,
	)

	r.transcript.AppendAssistant(resp.Content)
	return resp.Content, nil
}

func (r *run) confirm(ctx context.Context, desc tools.Descriptor, action Action) (tools.Decision, error) {
	gate := r.loop.gate
	if gate == nil {
		slog.Warn("no confirmation gate configured, declining", "run", r.id, "tool", action.Name)
		return tools.DecisionDeclined, nil
	}
	decision, err := gate.Confirm(ctx, tools.ConfirmRequest{
		Tool:        action.Name,
		Description: desc.Description,
		Params:      action.Parameters,
	})
	if err != nil {
		return tools.DecisionDeclined, err
	}
	slog.Info("tool confirmation", "run", r.id, "tool", action.Name, "decision", decision.String())
	return decision, nil
}

func (r *run) dispatch(ctx context.Context, action Action) string {
	l := r.loop
	ctx, span := l.tracer.Start(ctx, "tool.dispatch", trace.WithAttributes(
		attribute.String("tool.name", action.Name),
	))
	defer span.End()

	res := l.dispatcher.Dispatch(ctx, action.Name, action.Parameters)
	span.SetAttributes(attribute.String("tool.result", res.Kind.String()))
	if res.IsError() {
		span.SetStatus(codes.Error, res.Kind.String())
	}

	obs := res.Observation()
	l.observer.OnObservation(action.Name, obs, res.IsError())
	return obs
}

func (r *run) finish(outcome Outcome, content string) *RunResult {
	r.enter(StateTerminal)
	r.result.Outcome = outcome
	r.result.Content = content
	if r.transcript != nil {
		r.result.Transcript = r.transcript.Messages()
	}
	r.span.SetAttributes(
		attribute.String("agent.outcome", outcome.String()),
		attribute.Int("agent.turns", r.result.Turns),
	)
	slog.Info("agent run finished", "run", r.id, "outcome", outcome.String(), "turns", r.result.Turns)
	return r.result
}

func (r *run) fatal(err error) (*RunResult, error) {
	r.result.Err = err
	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, err.Error())
	slog.Error("agent run failed", "run", r.id, "state", r.state.String(), "error", err)
	return r.finish(OutcomeFatal, err.Error()), err
}

var _ Agent = (*Loop)(nil)
