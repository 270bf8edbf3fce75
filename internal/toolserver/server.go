// Package toolserver is goreact's built-in MCP tool server: file access,
// shell commands and US weather lookups, served over stdio.
package toolserver

import (
	"net/http"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is reported to clients during initialize.
const ServerName = "goreact-tools"

// Options configures the built-in server.
type Options struct {
	Version        string
	WeatherBaseURL string       // default https://api.weather.gov
	HTTPClient     *http.Client // default 30s timeout
	Shell          []string     // command prefix for run_terminal_command, default sh -c
}

// New builds the MCP server with all built-in tools registered.
func New(opts Options) *server.MCPServer {
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := server.NewMCPServer(ServerName, opts.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcpgo.NewTool("read_file",
		mcpgo.WithDescription("Read the contents of a file."),
		mcpgo.WithString("file_path", mcpgo.Required(), mcpgo.Description("Absolute path of the file to read")),
		mcpgo.WithReadOnlyHintAnnotation(true),
		mcpgo.WithDestructiveHintAnnotation(false),
	), readFile)

	s.AddTool(mcpgo.NewTool("write_to_file",
		mcpgo.WithDescription("Write content to a file, replacing it. A literal \\n in content is written as a newline."),
		mcpgo.WithString("file_path", mcpgo.Required(), mcpgo.Description("Absolute path of the file to write")),
		mcpgo.WithString("content", mcpgo.Required(), mcpgo.Description("Content to write")),
		mcpgo.WithDestructiveHintAnnotation(true),
	), writeToFile)

	s.AddTool(mcpgo.NewTool("list_directory",
		mcpgo.WithDescription("List the entries of a directory."),
		mcpgo.WithString("directory_path", mcpgo.Required(), mcpgo.Description("Path of the directory to list")),
		mcpgo.WithReadOnlyHintAnnotation(true),
		mcpgo.WithDestructiveHintAnnotation(false),
	), listDirectory)

	cmd := &commandRunner{shell: opts.Shell}
	s.AddTool(mcpgo.NewTool("run_terminal_command",
		mcpgo.WithDescription("Run a terminal command and return its standard output."),
		mcpgo.WithString("command", mcpgo.Required(), mcpgo.Description("The command line to run")),
		mcpgo.WithDestructiveHintAnnotation(true),
		mcpgo.WithOpenWorldHintAnnotation(true),
	), cmd.handle)

	w := newWeatherClient(opts.WeatherBaseURL, opts.HTTPClient)
	s.AddTool(mcpgo.NewTool("get_alerts",
		mcpgo.WithDescription("Get active weather alerts for a US state."),
		mcpgo.WithString("state", mcpgo.Required(), mcpgo.Description("Two-letter US state code (e.g. CA, NY)")),
		mcpgo.WithReadOnlyHintAnnotation(true),
		mcpgo.WithDestructiveHintAnnotation(false),
		mcpgo.WithOpenWorldHintAnnotation(true),
	), w.getAlerts)

	s.AddTool(mcpgo.NewTool("get_forecast",
		mcpgo.WithDescription("Get the weather forecast for a location."),
		mcpgo.WithNumber("latitude", mcpgo.Required(), mcpgo.Description("Latitude of the location")),
		mcpgo.WithNumber("longitude", mcpgo.Required(), mcpgo.Description("Longitude of the location")),
		mcpgo.WithReadOnlyHintAnnotation(true),
		mcpgo.WithDestructiveHintAnnotation(false),
		mcpgo.WithOpenWorldHintAnnotation(true),
	), w.getForecast)

	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(opts Options) error {
	return server.ServeStdio(New(opts))
}

const defaultHTTPTimeout = 30 * time.Second
