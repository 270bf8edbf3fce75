package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goreact/internal/agent"
	"github.com/nextlevelbuilder/goreact/internal/config"
	"github.com/nextlevelbuilder/goreact/internal/providers"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(cmd.Context())
		},
	}
}

func runDoctor(ctx context.Context) {
	fmt.Println("goreact doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	// Config
	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("  Config invalid: %s\n", err)
	}

	// Provider
	fmt.Println()
	fmt.Println("  Provider:")
	fmt.Printf("    %-12s %s\n", "Name:", cfg.Provider.Name)
	fmt.Printf("    %-12s %s\n", "Model:", cfg.Provider.Model)
	key := cfg.Provider.APIKey
	source := "config/env"
	if key == "" {
		key, err = config.LookupAPIKey(cfg.Provider.Name)
		source = "keyring"
		if err != nil {
			fmt.Printf("    %-12s keyring error: %s\n", "API key:", err)
		}
	}
	checkAPIKey(key, source)
	if key != "" {
		if p, err := providers.New(providers.Options{Name: cfg.Provider.Name, APIKey: key, APIBase: cfg.Provider.APIBase}); err == nil {
			fmt.Printf("    %-12s %s\n", "Endpoint:", providers.APIBaseOf(p))
		}
	}

	// Agent
	fmt.Println()
	fmt.Println("  Agent:")
	fmt.Printf("    %-12s %s\n", "Guard:", describeInputGuard(cfg.Agent.InjectionAction, agent.NewInputGuard()))

	// Tool server
	fmt.Println()
	fmt.Println("  Tool server:")
	checkToolServer(ctx, cfg)

	// External tools
	fmt.Println()
	fmt.Println("  External Tools:")
	if runtime.GOOS == "windows" {
		checkBinary("cmd")
	} else {
		checkBinary("sh")
	}
	checkBinary("git")

	// Workspace
	fmt.Println()
	ws, err := cfg.Agent.ResolveWorkspace()
	if err != nil {
		fmt.Printf("  Workspace: %s\n", err)
	} else {
		fmt.Printf("  Workspace: %s", ws)
		if _, err := os.Stat(ws); err != nil {
			fmt.Println(" (NOT FOUND)")
		} else {
			fmt.Println(" (OK)")
		}
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

// describeInputGuard reports the guard action and the patterns it scans for.
func describeInputGuard(action string, g *agent.InputGuard) string {
	if action == "" {
		action = agent.GuardWarn
	}
	if action == agent.GuardOff {
		return "off"
	}
	if !g.HasPatterns() {
		return action + " (no patterns)"
	}
	names := g.PatternNames()
	return fmt.Sprintf("%s (%d patterns: %s)", action, len(names), strings.Join(names, ", "))
}

func checkAPIKey(apiKey, source string) {
	if apiKey == "" {
		fmt.Printf("    %-12s (not configured)\n", "API key:")
		return
	}
	fmt.Printf("    %-12s %s (%s)\n", "API key:", maskKey(apiKey), source)
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func checkToolServer(ctx context.Context, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ToolServer.HandshakeTimeout()+5*time.Second)
	defer cancel()

	ch, err := openToolServer(ctx, cfg)
	if err != nil {
		fmt.Printf("    %-12s %s\n", "Handshake:", err)
		return
	}
	defer ch.Close()

	info := ch.ServerInfo()
	fmt.Printf("    %-12s %s %s\n", "Server:", info.Name, info.Version)
	registry, err := loadRegistry(ctx, cfg, ch)
	if err != nil {
		fmt.Printf("    %-12s %s\n", "Tools:", err)
		return
	}
	fmt.Printf("    %-12s %d (%s)\n", "Tools:", registry.Count(), strings.Join(registry.Names(), ", "))
}

func checkBinary(name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Printf("    %-12s NOT FOUND\n", name+":")
	} else {
		fmt.Printf("    %-12s %s\n", name+":", path)
	}
}
