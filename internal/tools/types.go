// Package tools holds the agent's view of the tool server: the registry of
// advertised tools, the confirmation policy and gates, and the dispatcher
// that turns a tool call into observation text.
package tools

import (
	"context"

	"github.com/nextlevelbuilder/goreact/internal/mcp"
	"github.com/nextlevelbuilder/goreact/internal/providers"
)

// Capabilities is a bit set attached to a descriptor at registration time.
type Capabilities uint8

const (
	// CapMutatesEnvironment marks tools that must be confirmed by the user
	// before every invocation.
	CapMutatesEnvironment Capabilities = 1 << iota
	// CapReadOnly marks tools the server advertised as read-only.
	CapReadOnly
)

// Has reports whether all bits of c2 are set.
func (c Capabilities) Has(c2 Capabilities) bool { return c&c2 == c2 }

// Descriptor is an immutable record of one advertised tool.
type Descriptor struct {
	Name         string
	Description  string
	Parameters   map[string]interface{} // JSON Schema
	Capabilities Capabilities
}

// RequiresConfirmation reports whether invoking d needs an explicit user decision.
func RequiresConfirmation(d Descriptor) bool {
	return d.Capabilities.Has(CapMutatesEnvironment)
}

// Lister is the part of the transport channel the registry loads from.
type Lister interface {
	ListTools(ctx context.Context) ([]mcp.ToolInfo, error)
}

// Invoker is the part of the transport channel the dispatcher calls through.
type Invoker interface {
	Invoke(ctx context.Context, name string, params map[string]interface{}) (string, error)
}

// ToProviderDef converts a Descriptor to a providers.ToolDefinition for LLM APIs.
func ToProviderDef(d Descriptor) providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		},
	}
}
