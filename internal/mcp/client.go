// Package mcp connects external Model Context Protocol servers and exposes
// their tools through the agent's tool registry.
package mcp

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client wraps an MCP SDK client session for a single stdio server
type Client struct {
	name    string
	client  *mcp.Client
	session *mcp.ClientSession
	tools   []*mcp.Tool
}

// NewClient spawns the server command, connects over stdio, and lists
// its tools. The tool list is cached for the lifetime of the client.
func NewClient(ctx context.Context, name string, command string, args []string, env map[string]string) (*Client, error) {
	cmd := exec.Command(command, args...)
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), envSlice(env)...)
	}

	impl := &mcp.Implementation{
		Name:    "finagent",
		Version: "1.0.0",
	}
	client := mcp.NewClient(impl, nil)

	transport := &mcp.CommandTransport{Command: cmd}
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}

	var tools []*mcp.Tool
	for t, err := range session.Tools(ctx, nil) {
		if err != nil {
			session.Close()
			return nil, fmt.Errorf("failed to list tools: %w", err)
		}
		tools = append(tools, t)
	}

	return &Client{
		name:    name,
		client:  client,
		session: session,
		tools:   tools,
	}, nil
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

// Name returns the server name
func (c *Client) Name() string {
	return c.name
}

// Tools returns the cached tool list
func (c *Client) Tools() []*mcp.Tool {
	return c.tools
}

// CallTool invokes a tool on the server
func (c *Client) CallTool(ctx context.Context, toolName string, arguments map[string]any) (*mcp.CallToolResult, error) {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("call tool request failed: %w", err)
	}
	return result, nil
}

// Close shuts down the session
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}
