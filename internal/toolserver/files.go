package toolserver

import (
	"context"
	"os"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

func readFile(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	path, err := req.RequireString("file_path")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mcpgo.NewToolResultError("read file: " + err.Error()), nil
	}
	return mcpgo.NewToolResultText(string(data)), nil
}

func writeToFile(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	path, err := req.RequireString("file_path")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	// Models often emit escaped newlines inside JSON strings.
	content = strings.ReplaceAll(content, `\n`, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return mcpgo.NewToolResultError("write file: " + err.Error()), nil
	}
	return mcpgo.NewToolResultText("write succeeded"), nil
}

func listDirectory(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	dir, err := req.RequireString("directory_path")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return mcpgo.NewToolResultError("list directory: " + err.Error()), nil
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return mcpgo.NewToolResultText(strings.Join(names, "\n")), nil
}
