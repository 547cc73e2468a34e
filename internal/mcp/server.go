package mcp

import (
	"context"
	"fmt"

	"finagent/internal/config"
)

// Server is a running MCP server instance
type Server struct {
	config config.MCPServerConfig
	client *Client
}

// NewServer starts an MCP server from its config, expanding ${VAR}
// references in the configured environment first.
func NewServer(ctx context.Context, cfg config.MCPServerConfig) (*Server, error) {
	env := config.ExpandEnvMap(cfg.Env)

	client, err := NewClient(ctx, cfg.Name, cfg.Command, cfg.Args, env)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	return &Server{
		config: cfg,
		client: client,
	}, nil
}

// Name returns the server name
func (s *Server) Name() string {
	return s.config.Name
}

// Client returns the underlying MCP client
func (s *Server) Client() *Client {
	return s.client
}

// Close shuts down the server
func (s *Server) Close() error {
	return s.client.Close()
}

// Health reports whether the server still advertises any tools
func (s *Server) Health(ctx context.Context) error {
	if len(s.client.Tools()) == 0 {
		return fmt.Errorf("server has no tools available")
	}
	return nil
}
