package providers

import (
	"testing"
)

func fastMCPStyleDefs() []ToolDefinition {
	return []ToolDefinition{{
		Type: "function",
		Function: ToolFunctionSchema{
			Name:        "read_file",
			Description: "Read a file",
			Parameters: map[string]interface{}{
				"$schema": "http://json-schema.org/draft-07/schema#",
				"type":    "object",
				"title":   "read_fileArguments",
				"properties": map[string]interface{}{
					"file_path": map[string]interface{}{
						"type":    "string",
						"title":   "File Path",
						"default": "/tmp/x",
					},
					// a parameter literally named "title" must survive
					"title": map[string]interface{}{"type": "string"},
				},
				"anyOf": []interface{}{
					map[string]interface{}{"$ref": "#/$defs/A"},
					"literal",
				},
				"$defs": map[string]interface{}{"A": map[string]interface{}{"type": "string"}},
			},
		},
	}}
}

func TestCleanToolSchemas_DashScope(t *testing.T) {
	cleaned := CleanToolSchemas("dashscope", fastMCPStyleDefs())
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(cleaned))
	}

	params := cleaned[0].Function.Parameters
	for _, key := range []string{"$schema", "title", "$defs"} {
		if _, ok := params[key]; ok {
			t.Errorf("expected key %q to be removed", key)
		}
	}
	if params["type"] != "object" {
		t.Error("expected 'type' to remain")
	}

	props := params["properties"].(map[string]interface{})
	if _, ok := props["title"]; !ok {
		t.Error("parameter named 'title' must not be removed")
	}
	fp := props["file_path"].(map[string]interface{})
	if _, ok := fp["title"]; ok {
		t.Error("expected nested 'title' to be removed")
	}
	if _, ok := fp["default"]; !ok {
		t.Error("dashscope keeps 'default'")
	}

	anyOf := params["anyOf"].([]interface{})
	if ref := anyOf[0].(map[string]interface{}); len(ref) != 0 {
		t.Errorf("expected $ref stripped inside anyOf, got %v", ref)
	}
	if anyOf[1] != "literal" {
		t.Error("non-map array items must be kept as-is")
	}
}

func TestCleanToolSchemas_Gemini(t *testing.T) {
	cleaned := CleanToolSchemas("gemini-2.5-flash", fastMCPStyleDefs())
	props := cleaned[0].Function.Parameters["properties"].(map[string]interface{})
	fp := props["file_path"].(map[string]interface{})
	if _, ok := fp["default"]; ok {
		t.Error("expected nested 'default' removed for gemini")
	}
}

func TestCleanToolSchemas_UnknownProviderUnchanged(t *testing.T) {
	defs := fastMCPStyleDefs()
	cleaned := CleanToolSchemas("deepseek", defs)
	if _, ok := cleaned[0].Function.Parameters["$schema"]; !ok {
		t.Error("unknown providers should get the original definitions")
	}
}

func TestCleanToolSchemas_DoesNotMutateInput(t *testing.T) {
	defs := fastMCPStyleDefs()
	_ = CleanToolSchemas("openai", defs)
	if _, ok := defs[0].Function.Parameters["$schema"]; !ok {
		t.Error("input definitions were mutated")
	}
}
