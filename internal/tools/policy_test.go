package tools

import (
	"strings"
	"testing"

	"github.com/nextlevelbuilder/goreact/internal/mcp"
)

func TestPolicy_Names(t *testing.T) {
	p, err := NewPolicy(PolicyConfig{Tools: []string{"run_terminal_command"}})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	for name, want := range map[string]bool{
		"run_terminal_command": true,
		"read_file":            false,
	} {
		got, err := p.Mutates(mcp.ToolInfo{Name: name})
		if err != nil {
			t.Fatalf("Mutates(%s): %v", name, err)
		}
		if got != want {
			t.Errorf("Mutates(%s) = %v, want %v", name, got, want)
		}
	}
}

func TestPolicy_DestructiveHint(t *testing.T) {
	info := mcp.ToolInfo{Name: "delete_file", DestructiveHint: boolPtr(true)}

	off, _ := NewPolicy(PolicyConfig{})
	if got, _ := off.Mutates(info); got {
		t.Error("hint must be ignored unless enabled")
	}

	on, _ := NewPolicy(PolicyConfig{HonorDestructiveHint: true})
	if got, _ := on.Mutates(info); !got {
		t.Error("expected destructive hint to tag tool")
	}
	if got, _ := on.Mutates(mcp.ToolInfo{Name: "read_file", DestructiveHint: boolPtr(false)}); got {
		t.Error("non-destructive tool must not be tagged")
	}
}

func TestPolicy_Expression(t *testing.T) {
	p, err := NewPolicy(PolicyConfig{
		Expression: `name.startsWith("write_") || (destructive && !read_only)`,
	})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	tests := []struct {
		info mcp.ToolInfo
		want bool
	}{
		{mcp.ToolInfo{Name: "write_to_file"}, true},
		{mcp.ToolInfo{Name: "read_file", ReadOnlyHint: boolPtr(true), DestructiveHint: boolPtr(true)}, false},
		{mcp.ToolInfo{Name: "drop_table", DestructiveHint: boolPtr(true)}, true},
		{mcp.ToolInfo{Name: "list_directory"}, false},
	}
	for _, tt := range tests {
		got, err := p.Mutates(tt.info)
		if err != nil {
			t.Fatalf("Mutates(%s): %v", tt.info.Name, err)
		}
		if got != tt.want {
			t.Errorf("Mutates(%s) = %v, want %v", tt.info.Name, got, tt.want)
		}
	}
}

func TestPolicy_InvalidExpression(t *testing.T) {
	if _, err := NewPolicy(PolicyConfig{Expression: `name +`}); err == nil {
		t.Error("expected compile error")
	}
	_, err := NewPolicy(PolicyConfig{Expression: `name`})
	if err == nil || !strings.Contains(err.Error(), "must be boolean") {
		t.Errorf("expected non-boolean error, got %v", err)
	}
}
