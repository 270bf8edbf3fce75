package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goreact/internal/logging"
	"github.com/nextlevelbuilder/goreact/internal/toolserver"
)

func serveToolsCmd() *cobra.Command {
	var weatherURL string

	cmd := &cobra.Command{
		Use:   "serve-tools",
		Short: "Serve the built-in tools over MCP stdio",
		Long: `Run the built-in MCP tool server on stdin/stdout. goreact starts this
command itself when tool_server.command is not configured; it can also be
registered with any other MCP client.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			// stdout carries the protocol; logs must stay on stderr.
			if _, err := logging.Setup(level, "text", os.Stderr); err != nil {
				return err
			}
			return toolserver.ServeStdio(toolserver.Options{
				Version:        Version,
				WeatherBaseURL: weatherURL,
			})
		},
	}

	cmd.Flags().StringVar(&weatherURL, "weather-url", "", "base URL of the NWS API (default https://api.weather.gov)")
	return cmd
}
