package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goreact/internal/agent"
	"github.com/nextlevelbuilder/goreact/internal/config"
	"github.com/nextlevelbuilder/goreact/internal/providers"
	"github.com/nextlevelbuilder/goreact/internal/tools"
	"github.com/nextlevelbuilder/goreact/internal/tracing"
	"github.com/nextlevelbuilder/goreact/internal/tracing/otelexport"
)

type runOptions struct {
	yes       bool
	maxTurns  int
	model     string
	workspace string
	quiet     bool
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Solve one task with the ReAct loop",
		Long: `Run one task to completion. The model thinks, requests tools and reads
their results until it gives a final answer. Tools that change the
environment ask for confirmation first; declining ends the task.

Examples:
  goreact run "what is in /tmp?"
  goreact run --yes --max-turns 20 "write hello to /tmp/hello.txt"
  goreact run                              # Prompt for the task`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.TrimSpace(strings.Join(args, " "))
			if task == "" {
				t, err := promptString("Task", "What should the agent do?", "")
				if err != nil {
					return err
				}
				task = strings.TrimSpace(t)
			}
			if task == "" {
				return errors.New("task is empty")
			}
			os.Exit(runTask(task, opts))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "approve every tool call without asking")
	cmd.Flags().IntVar(&opts.maxTurns, "max-turns", -1, "model calls before giving up (0 = unbounded, default from config)")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model override")
	cmd.Flags().StringVarP(&opts.workspace, "workspace", "w", "", "working directory shown to the model")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "print only the final answer")

	return cmd
}

// runTask returns the process exit code: 0 for a final answer or a declined
// confirmation, 1 for a fatal error.
func runTask(task string, opts runOptions) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	applyRunOverrides(cfg, opts)
	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := providers.New(providers.Options{
		Name:    cfg.Provider.Name,
		APIKey:  cfg.Provider.APIKey,
		APIBase: cfg.Provider.APIBase,
		Model:   cfg.Provider.Model,
		RPM:     cfg.Provider.RPM,
		Timeout: cfg.Provider.Timeout(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating provider: %v\n", err)
		return 1
	}
	slog.Debug("model provider ready", "provider", provider.Name(), "endpoint", providers.APIBaseOf(provider), "model", cfg.Provider.Model)

	tracer, shutdown, err := tracing.Setup(ctx, tracing.Options{
		Enabled: cfg.Telemetry.Enabled,
		Export: otelexport.Config{
			Endpoint:       cfg.Telemetry.Endpoint,
			Protocol:       cfg.Telemetry.Protocol,
			Insecure:       cfg.Telemetry.Insecure,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: Version,
			Headers:        cfg.Telemetry.Headers,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up telemetry: %v\n", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(sctx)
	}()

	ch, err := openToolServer(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, formatAgentError(err))
		return 1
	}
	defer ch.Close()

	registry, err := loadRegistry(ctx, cfg, ch)
	if err != nil {
		fmt.Fprintln(os.Stderr, formatAgentError(err))
		return 1
	}

	workspace, err := cfg.Agent.ResolveWorkspace()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving workspace: %v\n", err)
		return 1
	}

	var tmpl string
	if cfg.Agent.PromptFile != "" {
		if tmpl, err = agent.LoadPromptTemplate(config.ExpandHome(cfg.Agent.PromptFile)); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading prompt: %v\n", err)
			return 1
		}
	}

	var observer agent.Observer = agent.NopObserver{}
	if !opts.quiet {
		observer = newConsole(os.Stderr)
	}

	loop := agent.NewLoop(agent.LoopConfig{
		ID:              "cli",
		Provider:        provider,
		Model:           cfg.Provider.Model,
		Registry:        registry,
		Dispatcher:      tools.NewDispatcher(registry, ch, tools.WithMaxObservationChars(cfg.Agent.MaxObservationChars)),
		Gate:            selectGate(opts.yes),
		PromptTemplate:  tmpl,
		Workspace:       workspace,
		MaxTurns:        cfg.Agent.MaxTurns,
		SendToolDefs:    cfg.Provider.SendToolDefinitions(),
		InjectionAction: cfg.Agent.InjectionAction,
		Observer:        observer,
		Tracer:          tracer,
	})

	result, err := loop.Run(ctx, agent.RunRequest{Task: task})
	if err != nil {
		fmt.Fprintln(os.Stderr, formatAgentError(err))
		return 1
	}

	fmt.Println(result.Content)
	return 0
}

func applyRunOverrides(cfg *config.Config, opts runOptions) {
	if opts.model != "" {
		cfg.Provider.Model = opts.model
	}
	if opts.maxTurns >= 0 {
		cfg.Agent.MaxTurns = opts.maxTurns
	}
	if opts.workspace != "" {
		cfg.Agent.Workspace = opts.workspace
	}
}

// selectGate picks the confirmation UI: none with --yes, a form on a
// terminal, a plain y/n line otherwise.
func selectGate(yes bool) tools.Gate {
	switch {
	case yes:
		return tools.AutoGate{}
	case isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stderr.Fd()):
		return tools.PromptGate{}
	default:
		return tools.NewLineGate(os.Stdin, os.Stderr)
	}
}
