package tool

import (
	"context"
	"encoding/json"
	"time"
)

// Tool defines the interface that all tools must implement
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// DisplayName returns a human-readable name for UI and status updates
	DisplayName() string

	// Description returns a brief description of what this tool does
	Description() string

	// Parameters returns the JSON schema for the tool's parameters.
	// The schema's top-level "required" list is enforced by the executor
	// before the tool runs.
	Parameters() map[string]any

	// Execute runs the tool with the given arguments
	Execute(ctx context.Context, args json.RawMessage) (*Result, error)
}

type Result struct {
	Success bool
	Output  string
	Error   string
	Data    map[string]any
}

// CallResult ties one tool call request to its outcome. Immutable once the
// executor returns it.
type CallResult struct {
	ToolName  string
	CallID    string
	Args      json.RawMessage
	Result    *Result
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns the wall-clock time spent executing the call
func (c *CallResult) Duration() time.Duration {
	return c.EndTime.Sub(c.StartTime)
}
