package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/goreact/internal/mcp"
	"github.com/nextlevelbuilder/goreact/internal/providers"
)

// Registry is the ordered, read-only set of tools discovered at startup.
// It is safe for concurrent reads because nothing mutates it after Load.
type Registry struct {
	tools []Descriptor
	index map[string]int
}

// NewRegistry builds a registry from descriptors in order. Duplicate names
// keep the first occurrence.
func NewRegistry(descs ...Descriptor) *Registry {
	r := &Registry{index: make(map[string]int, len(descs))}
	for _, d := range descs {
		if _, dup := r.index[d.Name]; dup {
			slog.Warn("duplicate tool name ignored", "tool", d.Name)
			continue
		}
		r.index[d.Name] = len(r.tools)
		r.tools = append(r.tools, d)
	}
	return r
}

// Load takes one snapshot of the server's tools and tags each with the
// capabilities decided by policy. A nil policy tags nothing.
func Load(ctx context.Context, lister Lister, policy *Policy) (*Registry, error) {
	infos, err := lister.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tools: %w", err)
	}

	descs := make([]Descriptor, 0, len(infos))
	for _, info := range infos {
		if info.Name == "" {
			slog.Warn("tool without name ignored")
			continue
		}
		d := Descriptor{
			Name:        info.Name,
			Description: info.Description,
			Parameters:  info.InputSchema,
		}
		if info.ReadOnlyHint != nil && *info.ReadOnlyHint {
			d.Capabilities |= CapReadOnly
		}
		if policy != nil {
			mutates, err := policy.Mutates(info)
			if err != nil {
				return nil, fmt.Errorf("confirmation policy for %q: %w", info.Name, err)
			}
			if mutates {
				d.Capabilities |= CapMutatesEnvironment
			}
		}
		descs = append(descs, d)
	}

	r := NewRegistry(descs...)
	slog.Info("tools registered", "count", r.Count(), "confirm", r.confirmNames())
	return r, nil
}

// Resolve returns the descriptor for name.
func (r *Registry) Resolve(name string) (Descriptor, bool) {
	i, ok := r.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.tools[i], true
}

// List returns all descriptors in discovery order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.tools))
	copy(out, r.tools)
	return out
}

// Names returns tool names in discovery order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, d := range r.tools {
		names[i] = d.Name
	}
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int { return len(r.tools) }

// ProviderDefs returns tool definitions for LLM provider APIs, in registry order.
func (r *Registry) ProviderDefs() []providers.ToolDefinition {
	defs := make([]providers.ToolDefinition, 0, len(r.tools))
	for _, d := range r.tools {
		defs = append(defs, ToProviderDef(d))
	}
	return defs
}

// Render produces the tool listing embedded in the system prompt. The output
// is stable for a given registry: tools in discovery order, schemas with
// sorted keys.
func (r *Registry) Render() string {
	if len(r.tools) == 0 {
		return "(no tools available)"
	}

	var sb strings.Builder
	for i, d := range r.tools {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "- %s: %s\n", d.Name, oneLine(d.Description))
		params := d.Parameters
		if params == nil {
			params = map[string]interface{}{"type": "object"}
		}
		schema, err := json.Marshal(params)
		if err != nil {
			schema = []byte(`{"type":"object"}`)
		}
		fmt.Fprintf(&sb, "  parameters: %s\n", schema)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (r *Registry) confirmNames() []string {
	var names []string
	for _, d := range r.tools {
		if RequiresConfirmation(d) {
			names = append(names, d.Name)
		}
	}
	return names
}

func oneLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(no description)"
	}
	return strings.Join(strings.Fields(s), " ")
}

var _ Lister = (*mcp.Channel)(nil)
