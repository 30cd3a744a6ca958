// Package relay bridges the assistant to a chat platform through an MCP
// relay server (for example a Discord MCP server) launched over stdio.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotConnected is returned by calls made before Connect.
var ErrNotConnected = errors.New("relay: not connected")

// Caller is the part of the relay session the adapters need.
type Caller interface {
	CallToolText(ctx context.Context, name string, args map[string]any) (string, error)
}

// ToolInfo describes one tool exposed by the relay server.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema any
}

// transportBuilder is swapped in tests for an in-memory transport.
var transportBuilder = commandTransport

// Client wraps an MCP client session with the relay server.
type Client struct {
	impl    *mcp.Client
	command string

	mu      sync.Mutex
	session *mcp.ClientSession
}

// NewClient prepares a client for the server started by command. The
// command line is split on whitespace.
func NewClient(command string) *Client {
	impl := mcp.NewClient(&mcp.Implementation{Name: "graddirector", Version: "v1"}, nil)
	return &Client{impl: impl, command: command}
}

func commandTransport(ctx context.Context, command string) (mcp.Transport, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("relay: command is empty")
	}
	// #nosec G204 -- the relay command comes from operator configuration
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	return &mcp.CommandTransport{Command: cmd}, nil
}

// Connect launches the relay server and performs the MCP handshake.
// Calling Connect on a connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return nil
	}
	transport, err := transportBuilder(ctx, c.command)
	if err != nil {
		return err
	}
	session, err := c.impl.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("relay: connect %q: %w", c.command, err)
	}
	c.session = session
	slog.Info("Relay connected", "command", c.command)
	return nil
}

func (c *Client) current() (*mcp.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNotConnected
	}
	return c.session, nil
}

// ListTools returns every tool the relay server exposes.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	session, err := c.current()
	if err != nil {
		return nil, err
	}
	var out []ToolInfo
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("relay: list tools: %w", err)
		}
		out = append(out, ToolInfo{Name: tool.Name, Description: tool.Description, InputSchema: tool.InputSchema})
	}
	return out, nil
}

// CallToolText calls a relay tool and returns its first text content, or the
// JSON encoding of all contents when there is no text. A result flagged as
// an error is returned as a Go error.
func (c *Client) CallToolText(ctx context.Context, name string, args map[string]any) (string, error) {
	session, err := c.current()
	if err != nil {
		return "", err
	}
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("relay: call %s: %w", name, err)
	}

	text, found := "", false
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			text, found = tc.Text, true
			break
		}
	}
	if !found && len(res.Content) > 0 {
		b, err := json.Marshal(res.Content)
		if err == nil {
			text = string(b)
		}
	}

	if res.IsError {
		return "", fmt.Errorf("relay: %s reported an error: %s", name, text)
	}
	return text, nil
}

// Close ends the session and stops the relay server.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}
