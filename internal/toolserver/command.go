package toolserver

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

type commandRunner struct {
	shell []string
}

func (c *commandRunner) prefix() []string {
	if len(c.shell) > 0 {
		return c.shell
	}
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

// handle runs the command and returns stdout. A non-zero exit is reported as
// a tool error carrying stderr.
func (c *commandRunner) handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	argv := append(append([]string{}, c.prefix()...), command)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return mcpgo.NewToolResultError("execution failed: " + stderr.String()), nil
		}
		return mcpgo.NewToolResultError("run command: " + err.Error()), nil
	}
	return mcpgo.NewToolResultText(stdout.String()), nil
}
