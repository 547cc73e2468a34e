package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandEnv(t *testing.T) {
	os.Setenv("FINAGENT_TEST_KEY", "sk-12345")
	defer os.Unsetenv("FINAGENT_TEST_KEY")

	tests := []struct {
		in   string
		want string
	}{
		{"${FINAGENT_TEST_KEY}", "sk-12345"},
		{"prefix-${FINAGENT_TEST_KEY}-suffix", "prefix-sk-12345-suffix"},
		{"${FINAGENT_TEST_UNSET_VAR}", ""},
		{"no vars here", "no vars here"},
		{"$NOT_BRACED", "$NOT_BRACED"},
	}

	for _, tt := range tests {
		if got := ExpandEnv(tt.in); got != tt.want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandEnvMap(t *testing.T) {
	os.Setenv("FINAGENT_TEST_TOKEN", "tok")
	defer os.Unsetenv("FINAGENT_TEST_TOKEN")

	out := ExpandEnvMap(map[string]string{
		"API_TOKEN": "${FINAGENT_TEST_TOKEN}",
		"PLAIN":     "value",
	})
	if out["API_TOKEN"] != "tok" {
		t.Errorf("Expected tok, got %s", out["API_TOKEN"])
	}
	if out["PLAIN"] != "value" {
		t.Errorf("Expected value, got %s", out["PLAIN"])
	}

	if ExpandEnvMap(nil) != nil {
		t.Error("nil map should stay nil")
	}
}

func TestLoad(t *testing.T) {
	os.Setenv("FINAGENT_TEST_API_KEY", "sk-from-env")
	defer os.Unsetenv("FINAGENT_TEST_API_KEY")

	content := `
llm:
  api_key: "${FINAGENT_TEST_API_KEY}"
  model: gpt-4o-mini
agent:
  max_iterations: 5
  temperature: 0.3
eval:
  pass_threshold: 0.8
  case_timeout_seconds: 30
  concurrency: 4
mcp:
  servers:
    - name: filesystem
      transport: stdio
      command: mcp-fs
      args: ["--root", "/data"]
`
	path := filepath.Join(t.TempDir(), "finagent.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("API key should be env-expanded, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("Unexpected model: %s", cfg.LLM.Model)
	}
	if cfg.Agent.MaxIterations != 5 {
		t.Errorf("Expected 5 iterations, got %d", cfg.Agent.MaxIterations)
	}
	if cfg.Eval.CaseTimeout() != 30*time.Second {
		t.Errorf("Expected 30s case timeout, got %v", cfg.Eval.CaseTimeout())
	}
	// Unset sections keep their defaults
	if cfg.Agent.MaxTokens != 4096 {
		t.Errorf("Expected default max_tokens 4096, got %d", cfg.Agent.MaxTokens)
	}
	if len(cfg.MCP.Servers) != 1 || cfg.MCP.Servers[0].Name != "filesystem" {
		t.Errorf("Unexpected MCP servers: %+v", cfg.MCP.Servers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults are valid", func(c *Config) {}, true},
		{"negative iterations", func(c *Config) { c.Agent.MaxIterations = -1 }, false},
		{"threshold above one", func(c *Config) { c.Eval.PassThreshold = 1.5 }, false},
		{"negative concurrency", func(c *Config) { c.Eval.Concurrency = -2 }, false},
		{
			"duplicate server names",
			func(c *Config) {
				c.MCP.Servers = []MCPServerConfig{
					{Name: "a", Transport: "stdio", Command: "x"},
					{Name: "a", Transport: "stdio", Command: "y"},
				}
			},
			false,
		},
		{
			"unsupported transport",
			func(c *Config) {
				c.MCP.Servers = []MCPServerConfig{{Name: "a", Transport: "http", Command: "x"}}
			},
			false,
		},
		{
			"server name with invalid characters",
			func(c *Config) {
				c.MCP.Servers = []MCPServerConfig{{Name: "bad name!", Transport: "stdio", Command: "x"}}
			},
			false,
		},
		{
			"valid stdio server",
			func(c *Config) {
				c.MCP.Servers = []MCPServerConfig{{Name: "fs-1", Transport: "stdio", Command: "mcp-fs"}}
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Expected valid config, got: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/finagent.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}
