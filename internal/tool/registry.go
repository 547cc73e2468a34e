package tool

import (
	"fmt"
	"sort"
	"sync"

	"finagent/internal/llm"
)

// Registry holds the closed set of tools available to an agent. It is built
// at startup and passed into the agent loop explicitly; there is no ambient
// process-wide catalog.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = tool
	return nil
}

func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	return tool, nil
}

// List returns all registered tools sorted by name, so the catalog shown to
// the model is stable across calls.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// Definitions converts the registered tools to the llm catalog format
func (r *Registry) Definitions() []*llm.ToolDefinition {
	tools := r.List()
	defs := make([]*llm.ToolDefinition, len(tools))

	for i, t := range tools {
		defs[i] = &llm.ToolDefinition{
			Type: "function",
			Function: &llm.FunctionDef{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		}
	}

	return defs
}

// DisplayName resolves a tool's human-readable name, falling back to the
// internal name when the tool is unknown.
func (r *Registry) DisplayName(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.tools[name]; ok {
		return t.DisplayName()
	}
	return name
}

// InternalName maps a display name back to the registered tool name. Returns
// the input unchanged when no tool matches.
func (r *Registry) InternalName(displayName string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, t := range r.tools {
		if t.DisplayName() == displayName {
			return name
		}
	}
	return displayName
}
