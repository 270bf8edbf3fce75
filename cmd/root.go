// Package cmd implements the goreact command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goreact/internal/config"
	"github.com/nextlevelbuilder/goreact/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "goreact",
		Short: "ReAct agent that solves tasks with tools from an MCP server",
		Long: `goreact drives a language model through a think / act / observe loop.
Tools come from an MCP tool server started as a child process; tools that
change the environment are confirmed before they run.

Examples:
  goreact run "summarise README.md"        # One task, interactive confirmation
  goreact run --yes "create notes.txt"     # Approve every tool call
  goreact tools                            # List the tools the server offers
  goreact auth set                         # Store the API key in the OS keyring`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $GOREACT_CONFIG or "+config.DefaultConfigPath+")")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		runCmd(),
		toolsCmd(),
		serveToolsCmd(),
		authCmd(),
		doctorCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return config.ExpandHome(cfgFile)
	}
	if v := os.Getenv("GOREACT_CONFIG"); v != "" {
		return config.ExpandHome(v)
	}
	return config.ExpandHome(config.DefaultConfigPath)
}

// loadConfig reads and validates the config and installs the logger.
// Logs go to stderr so stdout stays clean for answers and the stdio transport.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if _, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
