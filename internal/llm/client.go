package llm

import (
	"context"
	"fmt"
)

type Client interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Provider() string
	Model() string
}

type ChatRequest struct {
	Messages    []Message
	Tools       []*ToolDefinition
	Temperature float32
	MaxTokens   int
}

type ChatResponse struct {
	Message    Message
	StopReason StopReason
	Usage      Usage
}

type ToolDefinition struct {
	Type     string
	Function *FunctionDef
}

type FunctionDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// TransportError marks a failure to reach the model at all, as opposed to a
// response the caller dislikes. The agent loop treats it as fatal to the
// current turn; the evaluation engine treats it as fatal to one test case.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
