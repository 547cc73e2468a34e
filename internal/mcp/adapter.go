package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"finagent/internal/tool"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolAdapter presents an MCP tool as a registry tool. Names are
// namespaced as "server_tool" so tools from different servers cannot
// collide with each other or with the builtins.
type ToolAdapter struct {
	client         *Client
	mcpTool        *mcp.Tool
	namespacedName string
}

// NewToolAdapter creates an adapter for a single MCP tool
func NewToolAdapter(client *Client, mcpTool *mcp.Tool) *ToolAdapter {
	return &ToolAdapter{
		client:         client,
		mcpTool:        mcpTool,
		namespacedName: fmt.Sprintf("%s_%s", client.Name(), mcpTool.Name),
	}
}

// Name returns the namespaced tool name
func (a *ToolAdapter) Name() string {
	return a.namespacedName
}

// DisplayName derives a readable label from the namespaced name
func (a *ToolAdapter) DisplayName() string {
	words := strings.Split(a.namespacedName, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Description returns the MCP tool description tagged with its source
func (a *ToolAdapter) Description() string {
	desc := a.mcpTool.Description
	if desc == "" {
		desc = fmt.Sprintf("MCP tool from %s server", a.client.Name())
	}
	return fmt.Sprintf("%s\n\n[MCP Server: %s]", desc, a.client.Name())
}

// Parameters returns the MCP tool's input schema as a JSON Schema map
func (a *ToolAdapter) Parameters() map[string]any {
	if a.mcpTool.InputSchema == nil {
		return emptySchema()
	}

	// The SDK ships the schema as its own struct type, so round-trip
	// through JSON to get the map shape the LLM layer expects.
	raw, err := json.Marshal(a.mcpTool.InputSchema)
	if err != nil {
		return emptySchema()
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return emptySchema()
	}
	return schema
}

func emptySchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// Execute forwards the call to the MCP server
func (a *ToolAdapter) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	var args map[string]any
	if err := json.Unmarshal(params, &args); err != nil {
		return &tool.Result{
			Success: false,
			Error:   fmt.Sprintf("invalid parameters: %v", err),
		}, nil
	}

	result, err := a.client.CallTool(ctx, a.mcpTool.Name, args)
	if err != nil {
		return &tool.Result{
			Success: false,
			Error:   fmt.Sprintf("MCP tool execution failed: %v", err),
		}, nil
	}

	if result.IsError {
		return &tool.Result{
			Success: false,
			Error:   errorText(result),
		}, nil
	}

	return &tool.Result{
		Success: true,
		Output:  contentText(result.Content),
		Data: map[string]any{
			"mcp_server": a.client.Name(),
			"mcp_tool":   a.mcpTool.Name,
		},
	}, nil
}

// contentText flattens an MCP content array into plain text
func contentText(content []mcp.Content) string {
	var parts []string
	for _, item := range content {
		switch c := item.(type) {
		case *mcp.TextContent:
			parts = append(parts, c.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[Image: %s]", c.MIMEType))
		case *mcp.AudioContent:
			parts = append(parts, fmt.Sprintf("[Audio: %s]", c.MIMEType))
		default:
			data, err := json.Marshal(item)
			if err != nil {
				parts = append(parts, fmt.Sprintf("[Unknown content type: %T]", item))
			} else {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}

func errorText(result *mcp.CallToolResult) string {
	if len(result.Content) > 0 {
		return contentText(result.Content)
	}
	return "MCP tool returned an error"
}
