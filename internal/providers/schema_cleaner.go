package providers

import "strings"

// Schema keys each OpenAI-compatible backend rejects or ignores. MCP servers
// (FastMCP in particular) emit "title" and "$schema" on every property, which
// some endpoints refuse outright.
var unsupportedSchemaKeys = map[string]map[string]struct{}{
	"gemini":    keySet("$schema", "$ref", "$defs", "additionalProperties", "examples", "default", "title"),
	"dashscope": keySet("$schema", "$ref", "$defs", "title"),
	"openai":    keySet("$schema"),
}

func keySet(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

// CleanToolSchemas returns a copy of defs with provider-incompatible
// JSON Schema fields removed from each tool's parameters.
// Returns the original slice unchanged for providers that need no cleaning.
func CleanToolSchemas(providerName string, defs []ToolDefinition) []ToolDefinition {
	remove := unsupportedKeysForProvider(providerName)
	if remove == nil || len(defs) == 0 {
		return defs
	}

	cleaned := make([]ToolDefinition, len(defs))
	for i, d := range defs {
		cleaned[i] = ToolDefinition{
			Type: d.Type,
			Function: ToolFunctionSchema{
				Name:        d.Function.Name,
				Description: d.Function.Description,
				Parameters:  cleanSchema(d.Function.Parameters, remove, false),
			},
		}
	}
	return cleaned
}

func unsupportedKeysForProvider(name string) map[string]struct{} {
	name = strings.ToLower(name)
	if strings.HasPrefix(name, "gemini") {
		return unsupportedSchemaKeys["gemini"]
	}
	return unsupportedSchemaKeys[name]
}

// cleanSchema recursively drops unsupported keys. Inside "properties" the map
// keys are parameter names, not schema keywords, so they are never removed.
func cleanSchema(schema map[string]interface{}, remove map[string]struct{}, isProperties bool) map[string]interface{} {
	if schema == nil {
		return nil
	}

	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		if _, drop := remove[k]; drop && !isProperties {
			continue
		}
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = cleanSchema(val, remove, !isProperties && k == "properties")
		case []interface{}:
			items := make([]interface{}, len(val))
			for i, item := range val {
				if m, ok := item.(map[string]interface{}); ok {
					items[i] = cleanSchema(m, remove, false)
				} else {
					items[i] = item
				}
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}
