package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete finagent configuration
type Config struct {
	LLM   LLMConfig   `yaml:"llm"`
	Agent AgentConfig `yaml:"agent"`
	Judge JudgeConfig `yaml:"judge"`
	Eval  EvalConfig  `yaml:"eval"`
	MCP   MCPConfig   `yaml:"mcp"`
}

// LLMConfig targets the reasoning model endpoint
type LLMConfig struct {
	// APIKey supports ${VAR} expansion; defaults to $OPENAI_API_KEY
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the endpoint for OpenAI-compatible APIs
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// AgentConfig controls the ReAct loop
type AgentConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	Temperature   float32 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
}

// JudgeConfig controls the faithfulness judge. The judge always runs at
// temperature zero; only the model is configurable.
type JudgeConfig struct {
	Model string `yaml:"model"`
}

// EvalConfig controls evaluation runs
type EvalConfig struct {
	PassThreshold      float64 `yaml:"pass_threshold"`
	CaseTimeoutSeconds int     `yaml:"case_timeout_seconds"`
	Concurrency        int     `yaml:"concurrency"`
	StopOnError        bool    `yaml:"stop_on_error"`
}

// CaseTimeout returns the per-case timeout as a duration
func (e EvalConfig) CaseTimeout() time.Duration {
	return time.Duration(e.CaseTimeoutSeconds) * time.Second
}

// MCPConfig lists external MCP tool servers
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig defines a single MCP server
type MCPServerConfig struct {
	Name      string            `yaml:"name"`      // Unique server identifier
	Transport string            `yaml:"transport"` // "stdio" (only supported transport)
	Command   string            `yaml:"command"`   // Executable to run
	Args      []string          `yaml:"args"`      // Command arguments
	Env       map[string]string `yaml:"env"`       // Environment variables with ${VAR} support
	Disabled  bool              `yaml:"disabled"`  // Skip this server if true
}

// Default returns the configuration used when no file is found
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			APIKey: "${OPENAI_API_KEY}",
			Model:  "gpt-4o",
		},
		Agent: AgentConfig{
			MaxIterations: 10,
			Temperature:   0.7,
			MaxTokens:     4096,
		},
		Judge: JudgeConfig{
			Model: "gpt-4o",
		},
		Eval: EvalConfig{
			PassThreshold:      0.7,
			CaseTimeoutSeconds: 60,
			Concurrency:        1,
		},
	}
}

// Load reads and parses the YAML config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.LLM.APIKey = ExpandEnv(cfg.LLM.APIKey)
	return cfg, nil
}

// LoadWithDefaults loads config with fallback to default locations.
// Checks: ./finagent.yaml, ./configs/finagent.yaml,
// ~/.config/finagent/finagent.yaml, /etc/finagent/finagent.yaml.
func LoadWithDefaults() (*Config, error) {
	locations := []string{
		"./finagent.yaml",
		"./configs/finagent.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "finagent", "finagent.yaml"))
	}

	locations = append(locations, "/etc/finagent/finagent.yaml")

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return Load(loc)
		}
	}

	// No config found - run on defaults (not an error)
	cfg := Default()
	cfg.LLM.APIKey = ExpandEnv(cfg.LLM.APIKey)
	return cfg, nil
}

// Validate checks config correctness
func (c *Config) Validate() error {
	if c.Agent.MaxIterations < 0 {
		return fmt.Errorf("agent.max_iterations cannot be negative")
	}
	if c.Eval.PassThreshold < 0 || c.Eval.PassThreshold > 1 {
		return fmt.Errorf("eval.pass_threshold must be in [0,1]")
	}
	if c.Eval.Concurrency < 0 {
		return fmt.Errorf("eval.concurrency cannot be negative")
	}

	names := make(map[string]bool)
	for i, server := range c.MCP.Servers {
		if server.Name == "" {
			return fmt.Errorf("mcp server #%d: name cannot be empty", i+1)
		}
		if names[server.Name] {
			return fmt.Errorf("duplicate mcp server name: %s", server.Name)
		}
		names[server.Name] = true

		if err := server.Validate(); err != nil {
			return fmt.Errorf("mcp server %s: %w", server.Name, err)
		}
	}

	return nil
}

// Validate checks a single server config
func (s *MCPServerConfig) Validate() error {
	// Server names become tool-name prefixes, so they must match the
	// OpenAI tool name pattern ^[a-zA-Z0-9_-]+$
	for _, ch := range s.Name {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' || ch == '-') {
			return fmt.Errorf("name contains invalid character %q (only alphanumeric, underscore, and hyphen allowed)", ch)
		}
	}

	if s.Transport == "" {
		return fmt.Errorf("transport is required")
	}
	if s.Transport != "stdio" {
		return fmt.Errorf("unsupported transport: %s (only 'stdio' is supported)", s.Transport)
	}
	if s.Command == "" {
		return fmt.Errorf("command is required")
	}

	return nil
}
