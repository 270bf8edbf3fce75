// Package mcp owns the connection to the external tool server: one child
// process spoken to over stdio with the Model Context Protocol.
package mcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// DefaultHandshakeTimeout bounds the initialize exchange when none is configured.
const DefaultHandshakeTimeout = 30 * time.Second

// CloseGrace is how long Close waits for the child to exit on stdin EOF
// before killing it.
const CloseGrace = 2 * time.Second

// ClientName is advertised to the tool server during initialize.
const ClientName = "goreact"

// ServerConfig describes how to launch the tool server.
type ServerConfig struct {
	Name             string
	Command          string
	Args             []string
	Env              []string // KEY=VALUE pairs added to the current environment
	Dir              string   // working directory, empty = inherit
	HandshakeTimeout time.Duration
	CallTimeout      time.Duration // 0 = none
}

// Options configures a Channel around an already-started client.
type Options struct {
	Name             string
	ClientVersion    string
	HandshakeTimeout time.Duration
	CallTimeout      time.Duration
}

// Channel is a bidirectional request/response link to one tool server.
// Requests are serialized: at most one is in flight at a time.
type Channel struct {
	name        string
	client      *mcpclient.Client
	callTimeout time.Duration
	server      mcpgo.Implementation

	mu     sync.Mutex
	tools  []ToolInfo
	listed bool

	stop      context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open spawns the tool server process and performs the initialize handshake.
// The child runs in cfg.Dir and is killed if the handshake fails or Close
// does not see it exit within CloseGrace.
func Open(ctx context.Context, cfg ServerConfig) (*Channel, error) {
	if cfg.Command == "" {
		return nil, &TransportError{Op: "start", Err: errors.New("no tool server command")}
	}

	procCtx, stop := context.WithCancel(context.Background())
	c, err := mcpclient.NewStdioMCPClientWithOptions(cfg.Command, cfg.Env, cfg.Args,
		transport.WithCommandFunc(commandFunc(procCtx, cfg.Dir)),
	)
	if err != nil {
		stop()
		return nil, &TransportError{Op: "start", Err: err}
	}
	if stderr, ok := mcpclient.GetStderr(c); ok {
		go drainStderr(cfg.Name, stderr)
	}

	ch, err := newChannel(ctx, c, Options{
		Name:             cfg.Name,
		HandshakeTimeout: cfg.HandshakeTimeout,
		CallTimeout:      cfg.CallTimeout,
	}, stop)
	if err != nil {
		return nil, err
	}

	slog.Info("mcp tool server connected",
		"server", cfg.Name,
		"command", cfg.Command,
		"dir", cfg.Dir,
		"remote", ch.server.Name,
		"remote_version", ch.server.Version,
	)
	return ch, nil
}

// commandFunc builds the child command bound to procCtx: cancelling it kills
// the process, which unblocks the transport's Wait.
func commandFunc(procCtx context.Context, dir string) transport.CommandFunc {
	return func(_ context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
		cmd := exec.CommandContext(procCtx, command, args...)
		cmd.Env = append(os.Environ(), env...)
		cmd.Dir = dir
		cmd.WaitDelay = CloseGrace
		return cmd, nil
	}
}

// NewChannel wraps a started client and performs the initialize handshake.
// The client is closed if the handshake fails.
func NewChannel(ctx context.Context, c *mcpclient.Client, opts Options) (*Channel, error) {
	return newChannel(ctx, c, opts, func() {})
}

func newChannel(ctx context.Context, c *mcpclient.Client, opts Options, stop context.CancelFunc) (*Channel, error) {
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	version := opts.ClientVersion
	if version == "" {
		version = "dev"
	}

	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := mcpgo.InitializeRequest{}
	req.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcpgo.Implementation{Name: ClientName, Version: version}

	res, err := c.Initialize(hctx, req)
	if err != nil {
		// A server that never answered may also ignore stdin EOF.
		stop()
		_ = c.Close()
		if errors.Is(hctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("handshake timed out after %s: %w", timeout, err)
		}
		return nil, &TransportError{Op: "initialize", Err: err}
	}

	return &Channel{
		name:        opts.Name,
		client:      c,
		callTimeout: opts.CallTimeout,
		server:      res.ServerInfo,
		stop:        stop,
	}, nil
}

// Name returns the configured server name.
func (ch *Channel) Name() string { return ch.name }

// ServerInfo returns the implementation info the server reported at initialize.
func (ch *Channel) ServerInfo() mcpgo.Implementation { return ch.server }

// ListTools returns the server's tools. The list is fetched once; later
// calls return the cached snapshot.
func (ch *Channel) ListTools(ctx context.Context) ([]ToolInfo, error) {
	if ch.closed.Load() {
		return nil, &TransportError{Op: "list_tools", Err: ErrChannelClosed}
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.listed {
		return ch.tools, nil
	}

	var out []ToolInfo
	req := mcpgo.ListToolsRequest{}
	for {
		res, err := ch.client.ListTools(ctx, req)
		if err != nil {
			return nil, &TransportError{Op: "list_tools", Err: err}
		}
		for _, t := range res.Tools {
			out = append(out, toolInfo(t))
		}
		if res.NextCursor == "" {
			break
		}
		req.Params.Cursor = res.NextCursor
	}

	ch.tools = out
	ch.listed = true
	slog.Debug("mcp tools listed", "server", ch.name, "count", len(out))
	return out, nil
}

// Invoke calls a tool and returns its text output. A tool that reports
// failure yields *ToolInvocationError; any channel failure yields *TransportError.
func (ch *Channel) Invoke(ctx context.Context, name string, params map[string]interface{}) (string, error) {
	if ch.closed.Load() {
		return "", &TransportError{Op: "call", Tool: name, Err: ErrChannelClosed}
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	callCtx := ctx
	if ch.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, ch.callTimeout)
		defer cancel()
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = params

	result, err := ch.client.CallTool(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timeout after %s: %w", ch.callTimeout, err)
		}
		return "", &TransportError{Op: "call", Tool: name, Err: err}
	}

	text := extractTextContent(result)
	if result.IsError {
		return "", &ToolInvocationError{Tool: name, Text: text}
	}
	return text, nil
}

// Close tears down the client and the child process. A child that has not
// exited CloseGrace after stdin is closed is killed. Safe to call more than once.
func (ch *Channel) Close() error {
	ch.closeOnce.Do(func() {
		ch.closed.Store(true)
		kill := time.AfterFunc(CloseGrace, ch.stop)
		ch.closeErr = ch.client.Close()
		kill.Stop()
		ch.stop()
		slog.Debug("mcp channel closed", "server", ch.name)
	})
	return ch.closeErr
}

func drainStderr(server string, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		slog.Debug("mcp server stderr", "server", server, "line", sc.Text())
	}
}
