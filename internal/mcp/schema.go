package mcp

import (
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// ToolInfo is the transport-neutral view of an advertised tool.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema map[string]interface{} // JSON Schema for parameters

	// Annotation hints as advertised by the server; nil when absent.
	ReadOnlyHint    *bool
	DestructiveHint *bool
}

func toolInfo(t mcpgo.Tool) ToolInfo {
	return ToolInfo{
		Name:            t.Name,
		Description:     t.Description,
		InputSchema:     inputSchemaToMap(t.InputSchema),
		ReadOnlyHint:    t.Annotations.ReadOnlyHint,
		DestructiveHint: t.Annotations.DestructiveHint,
	}
}

// inputSchemaToMap converts mcp.ToolInputSchema to a plain JSON Schema map.
func inputSchemaToMap(schema mcpgo.ToolInputSchema) map[string]interface{} {
	m := map[string]interface{}{
		"type": schema.Type,
	}
	if schema.Type == "" {
		m["type"] = "object"
	}
	if len(schema.Properties) > 0 {
		m["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		m["required"] = schema.Required
	}
	if schema.AdditionalProperties != nil {
		m["additionalProperties"] = schema.AdditionalProperties
	}
	return m
}

// extractTextContent concatenates all text content from a CallToolResult.
func extractTextContent(result *mcpgo.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	parts := make([]string, 0, len(result.Content))
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcpgo.TextContent:
			parts = append(parts, v.Text)
		case *mcpgo.TextContent:
			parts = append(parts, v.Text)
		default:
			parts = append(parts, fmt.Sprintf("[non-text content: %T]", c))
		}
	}
	return strings.Join(parts, "\n")
}
