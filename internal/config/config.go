// Package config loads goreact's configuration from a JSON5 or YAML file,
// overlays environment variables and resolves the API key.
//
// The configuration is read once before the agent loop starts and is never
// mutated afterwards; components receive the values they need at construction.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when neither --config nor GOREACT_CONFIG is set.
const DefaultConfigPath = "~/.goreact/config.json5"

// Injection guard actions for agent.injection_action.
const (
	InjectionOff   = "off"
	InjectionLog   = "log"
	InjectionWarn  = "warn"
	InjectionBlock = "block"
)

// ErrNoAPIKey is returned by RequireAPIKey when no API key could be resolved.
var ErrNoAPIKey = errors.New("no API key configured (set provider.api_key, GOREACT_API_KEY or run 'goreact auth set')")

// Config is the root configuration document.
type Config struct {
	Provider   ProviderConfig   `json:"provider" yaml:"provider"`
	ToolServer ToolServerConfig `json:"tool_server" yaml:"tool_server"`
	Agent      AgentConfig      `json:"agent" yaml:"agent"`
	Confirm    ConfirmConfig    `json:"confirm" yaml:"confirm"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Telemetry  TelemetryConfig  `json:"telemetry" yaml:"telemetry"`
}

// ProviderConfig selects the model oracle.
type ProviderConfig struct {
	Name           string `json:"name" yaml:"name"`
	APIBase        string `json:"api_base,omitempty" yaml:"api_base,omitempty"`
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model          string `json:"model" yaml:"model"`
	RPM            int    `json:"rpm,omitempty" yaml:"rpm,omitempty"`                         // 0 = unlimited
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"` // 0 = no timeout
	SendToolDefs   *bool  `json:"send_tool_defs,omitempty" yaml:"send_tool_defs,omitempty"`  // nil = true
}

// ToolServerConfig describes the child MCP tool server.
type ToolServerConfig struct {
	Name                    string            `json:"name,omitempty" yaml:"name,omitempty"`
	Command                 string            `json:"command,omitempty" yaml:"command,omitempty"` // shell words; empty = built-in server
	Env                     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	HandshakeTimeoutSeconds int               `json:"handshake_timeout_seconds,omitempty" yaml:"handshake_timeout_seconds,omitempty"`
	ToolTimeoutSeconds      int               `json:"tool_timeout_seconds,omitempty" yaml:"tool_timeout_seconds,omitempty"` // 0 = no timeout
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	MaxTurns            int    `json:"max_turns,omitempty" yaml:"max_turns,omitempty"` // 0 = unbounded
	MaxObservationChars int    `json:"max_observation_chars,omitempty" yaml:"max_observation_chars,omitempty"`
	Workspace           string `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	PromptFile          string `json:"prompt_file,omitempty" yaml:"prompt_file,omitempty"`
	InjectionAction     string `json:"injection_action,omitempty" yaml:"injection_action,omitempty"`
}

// ConfirmConfig controls which tools are tagged as mutating the environment.
type ConfirmConfig struct {
	Tools                []string `json:"tools" yaml:"tools"`
	Expression           string   `json:"expression,omitempty" yaml:"expression,omitempty"` // CEL
	HonorDestructiveHint bool     `json:"honor_destructive_hint,omitempty" yaml:"honor_destructive_hint,omitempty"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // "text" or "json"
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Protocol    string            `json:"protocol,omitempty" yaml:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	ServiceName string            `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:  ProviderDashScope,
			Model: "qwen3-coder-plus",
		},
		ToolServer: ToolServerConfig{
			Name:                    "builtin",
			HandshakeTimeoutSeconds: 30,
		},
		Agent: AgentConfig{
			MaxObservationChars: 64 * 1024,
			InjectionAction:     InjectionWarn,
		},
		Confirm: ConfirmConfig{
			Tools: []string{"run_terminal_command"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "goreact",
		},
	}
}

// Load reads the file at path over the defaults and applies environment overrides.
// A missing file is not an error: defaults plus environment are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	path = ExpandHome(path)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.Provider.Name = NormalizeProviderName(cfg.Provider.Name)
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json5.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GOREACT_API_KEY"); v != "" {
		c.Provider.APIKey = v
	} else if v := os.Getenv("DASHSCOPE_API_KEY"); v != "" && c.Provider.APIKey == "" && NormalizeProviderName(c.Provider.Name) == ProviderDashScope {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("GOREACT_MODEL"); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv("GOREACT_API_BASE"); v != "" {
		c.Provider.APIBase = v
	}
	if v := os.Getenv("GOREACT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks structural constraints. It does not require an API key;
// use RequireAPIKey for commands that call the model.
func (c *Config) Validate() error {
	var errs []error
	if c.Provider.Model == "" {
		errs = append(errs, errors.New("provider.model is required"))
	}
	if c.Provider.RPM < 0 {
		errs = append(errs, errors.New("provider.rpm must be >= 0"))
	}
	if c.Agent.MaxTurns < 0 {
		errs = append(errs, errors.New("agent.max_turns must be >= 0"))
	}
	if c.Agent.MaxObservationChars < 0 {
		errs = append(errs, errors.New("agent.max_observation_chars must be >= 0"))
	}
	switch c.Agent.InjectionAction {
	case "", InjectionOff, InjectionLog, InjectionWarn, InjectionBlock:
	default:
		errs = append(errs, fmt.Errorf("agent.injection_action %q is not one of off|log|warn|block", c.Agent.InjectionAction))
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		errs = append(errs, fmt.Errorf("telemetry.protocol %q is not one of grpc|http", c.Telemetry.Protocol))
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
	}
	if _, err := c.ToolServer.Argv(""); err != nil && c.ToolServer.Command != "" {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RequireAPIKey fills Provider.APIKey from the keyring when unset and
// returns ErrNoAPIKey if it is still empty. An unusable keyring counts as empty.
func (c *Config) RequireAPIKey() error {
	if c.Provider.APIKey != "" {
		return nil
	}
	key, err := LookupAPIKey(c.Provider.Name)
	if err != nil {
		// Headless hosts often have no secret service; that is the same as no stored key.
		slog.Debug("keyring unavailable, ignoring", "provider", c.Provider.Name, "error", err)
		key = ""
	}
	if key == "" {
		return ErrNoAPIKey
	}
	c.Provider.APIKey = key
	return nil
}

// SendToolDefinitions reports whether tool definitions are sent with model requests.
func (p ProviderConfig) SendToolDefinitions() bool {
	return p.SendToolDefs == nil || *p.SendToolDefs
}

// Timeout returns the per-request model timeout (0 = none).
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Argv splits Command into argv. When Command is empty the built-in server is
// used: self is the path of the running executable.
func (t ToolServerConfig) Argv(self string) ([]string, error) {
	if strings.TrimSpace(t.Command) == "" {
		if self == "" {
			return nil, errors.New("tool_server.command is empty and executable path is unknown")
		}
		return []string{self, "serve-tools"}, nil
	}
	args, err := shellwords.Parse(t.Command)
	if err != nil {
		return nil, fmt.Errorf("tool_server.command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("tool_server.command is empty")
	}
	return args, nil
}

// EnvOverrides returns the configured child environment overrides as sorted
// KEY=VALUE pairs. The child also inherits the current process environment.
func (t ToolServerConfig) EnvOverrides() []string {
	env := make([]string, 0, len(t.Env))
	for k, v := range t.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// HandshakeTimeout returns the initialize timeout (default 30s).
func (t ToolServerConfig) HandshakeTimeout() time.Duration {
	if t.HandshakeTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(t.HandshakeTimeoutSeconds) * time.Second
}

// ToolTimeout returns the per-call timeout (0 = none).
func (t ToolServerConfig) ToolTimeout() time.Duration {
	return time.Duration(t.ToolTimeoutSeconds) * time.Second
}

// ResolveWorkspace returns the absolute workspace directory, defaulting to the
// current working directory.
func (a AgentConfig) ResolveWorkspace() (string, error) {
	ws := ExpandHome(a.Workspace)
	if ws == "" {
		return os.Getwd()
	}
	return filepath.Abs(ws)
}
