package tools

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/nextlevelbuilder/goreact/internal/mcp"
)

// DefaultConfirmTools is the built-in set of tools that change the environment.
var DefaultConfirmTools = []string{"run_terminal_command"}

// PolicyConfig lists the sources that tag a tool as mutating the environment.
// A tool is tagged when any source matches.
type PolicyConfig struct {
	Tools []string // exact tool names

	// Expression is a CEL boolean over name, description, destructive and read_only.
	// Example: `name.startsWith("write_") || (destructive && !read_only)`
	Expression string

	// HonorDestructiveHint tags tools whose server set destructiveHint=true.
	// mcp-go servers default the hint to true, so this is opt-in.
	HonorDestructiveHint bool
}

// Policy decides, once per tool at registration, whether it needs confirmation.
type Policy struct {
	names     map[string]bool
	program   cel.Program
	expr      string
	honorHint bool
}

// NewPolicy compiles cfg. An invalid expression is an error.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	p := &Policy{
		names:     make(map[string]bool, len(cfg.Tools)),
		expr:      cfg.Expression,
		honorHint: cfg.HonorDestructiveHint,
	}
	for _, n := range cfg.Tools {
		p.names[n] = true
	}

	if cfg.Expression == "" {
		return p, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("description", cel.StringType),
		cel.Variable("destructive", cel.BoolType),
		cel.Variable("read_only", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, iss := env.Compile(cfg.Expression)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compile confirm expression: %w", iss.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("confirm expression must be boolean, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build confirm expression: %w", err)
	}
	p.program = prg
	return p, nil
}

// Mutates reports whether info should carry CapMutatesEnvironment.
func (p *Policy) Mutates(info mcp.ToolInfo) (bool, error) {
	if p.names[info.Name] {
		return true, nil
	}
	destructive := info.DestructiveHint != nil && *info.DestructiveHint
	if p.honorHint && destructive {
		return true, nil
	}
	if p.program == nil {
		return false, nil
	}

	readOnly := info.ReadOnlyHint != nil && *info.ReadOnlyHint
	out, _, err := p.program.Eval(map[string]interface{}{
		"name":        info.Name,
		"description": info.Description,
		"destructive": destructive,
		"read_only":   readOnly,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", p.expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluate %q: non-boolean result %v", p.expr, out.Value())
	}
	return b, nil
}
