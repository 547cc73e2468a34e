package mcp

import (
	"context"
	"fmt"
	"sync"

	"finagent/internal/config"
	"finagent/internal/tool"
)

// Manager starts the configured MCP servers and registers their tools
type Manager struct {
	servers  map[string]*Server
	registry *tool.Registry
	mu       sync.RWMutex
}

// NewManager creates a manager that registers tools into registry
func NewManager(registry *tool.Registry) *Manager {
	return &Manager{
		servers:  make(map[string]*Server),
		registry: registry,
	}
}

// Initialize starts all enabled servers concurrently. Partial failure is
// tolerated: the error names the servers that failed, but the ones that
// came up stay registered. Only a total failure should abort startup.
func (m *Manager) Initialize(ctx context.Context, cfg config.MCPConfig) error {
	enabled := make([]config.MCPServerConfig, 0, len(cfg.Servers))
	for _, serverCfg := range cfg.Servers {
		if !serverCfg.Disabled {
			enabled = append(enabled, serverCfg)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(enabled))
	okChan := make(chan string, len(enabled))

	for _, serverCfg := range enabled {
		wg.Add(1)
		go func(cfg config.MCPServerConfig) {
			defer wg.Done()
			if err := m.startServer(ctx, cfg); err != nil {
				errChan <- fmt.Errorf("server %s: %w", cfg.Name, err)
			} else {
				okChan <- cfg.Name
			}
		}(serverCfg)
	}

	wg.Wait()
	close(errChan)
	close(okChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	var started []string
	for name := range okChan {
		started = append(started, name)
	}

	if len(errs) > 0 && len(started) == 0 {
		return fmt.Errorf("all MCP servers failed to initialize: %v", errs)
	}
	if len(errs) > 0 {
		return fmt.Errorf("some MCP servers failed (loaded %d/%d): %v", len(started), len(enabled), errs)
	}

	return nil
}

func (m *Manager) startServer(ctx context.Context, serverCfg config.MCPServerConfig) error {
	server, err := NewServer(ctx, serverCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	for _, mcpTool := range server.Client().Tools() {
		adapter := NewToolAdapter(server.Client(), mcpTool)
		if err := m.registry.Register(adapter); err != nil {
			server.Close()
			return fmt.Errorf("failed to register tool %s: %w", adapter.Name(), err)
		}
	}

	m.mu.Lock()
	m.servers[serverCfg.Name] = server
	m.mu.Unlock()

	return nil
}

// Close shuts down all servers concurrently
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(m.servers))

	for name, server := range m.servers {
		wg.Add(1)
		go func(name string, s *Server) {
			defer wg.Done()
			if err := s.Close(); err != nil {
				errChan <- fmt.Errorf("server %s: %w", name, err)
			}
		}(name, server)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	m.servers = make(map[string]*Server)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing servers: %v", errs)
	}
	return nil
}

// GetServer returns a server by name
func (m *Manager) GetServer(name string) (*Server, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	server, ok := m.servers[name]
	return server, ok
}

// ListServers returns the names of all active servers
func (m *Manager) ListServers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.servers))
	for name := range m.servers {
		names = append(names, name)
	}
	return names
}

// ServerCount returns the number of active servers
func (m *Manager) ServerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.servers)
}
