package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextlevelbuilder/goreact/internal/config"
	"github.com/nextlevelbuilder/goreact/internal/mcp"
	"github.com/nextlevelbuilder/goreact/internal/tools"
)

// openToolServer starts the configured tool server (the built-in one when no
// command is set) in the agent workspace and completes the handshake.
func openToolServer(ctx context.Context, cfg *config.Config) (*mcp.Channel, error) {
	self, err := os.Executable()
	if err != nil {
		self = ""
	}
	argv, err := cfg.ToolServer.Argv(self)
	if err != nil {
		return nil, err
	}
	workspace, err := cfg.Agent.ResolveWorkspace()
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	// A relative command path names a file relative to where goreact was
	// started, not to the workspace the child runs in.
	if strings.ContainsRune(argv[0], filepath.Separator) && !filepath.IsAbs(argv[0]) {
		if abs, err := filepath.Abs(argv[0]); err == nil {
			argv[0] = abs
		}
	}
	return mcp.Open(ctx, toolServerConfig(cfg, argv, workspace))
}

func toolServerConfig(cfg *config.Config, argv []string, workspace string) mcp.ServerConfig {
	return mcp.ServerConfig{
		Name:             cfg.ToolServer.Name,
		Command:          argv[0],
		Args:             argv[1:],
		Env:              cfg.ToolServer.EnvOverrides(),
		Dir:              workspace,
		HandshakeTimeout: cfg.ToolServer.HandshakeTimeout(),
		CallTimeout:      cfg.ToolServer.ToolTimeout(),
	}
}

// loadRegistry lists the server's tools and tags the mutating ones.
func loadRegistry(ctx context.Context, cfg *config.Config, ch *mcp.Channel) (*tools.Registry, error) {
	policy, err := tools.NewPolicy(tools.PolicyConfig{
		Tools:                cfg.Confirm.Tools,
		Expression:           cfg.Confirm.Expression,
		HonorDestructiveHint: cfg.Confirm.HonorDestructiveHint,
	})
	if err != nil {
		return nil, fmt.Errorf("confirm policy: %w", err)
	}
	return tools.Load(ctx, ch, policy)
}
