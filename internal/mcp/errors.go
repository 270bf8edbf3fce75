package mcp

import (
	"errors"
	"fmt"
)

// ErrChannelClosed is wrapped by TransportError when the channel was already torn down.
var ErrChannelClosed = errors.New("mcp channel is closed")

// TransportError means the channel itself is broken: the process could not
// start, the handshake failed or timed out, the process exited, or a frame
// could not be exchanged.
type TransportError struct {
	Op   string // "start", "initialize", "list_tools", "call"
	Tool string // set for "call"
	Err  error
}

func (e *TransportError) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("mcp transport %s %q: %v", e.Op, e.Tool, e.Err)
	}
	return fmt.Sprintf("mcp transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ToolInvocationError means the server ran the tool and reported failure
// (CallToolResult.isError). Text is the raw remote error text.
type ToolInvocationError struct {
	Tool string
	Text string
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("tool %q failed: %s", e.Tool, e.Text)
}
