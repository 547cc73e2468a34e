package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"finagent/internal/llm"
)

func makeCall(name, args string) *llm.ToolCall {
	return &llm.ToolCall{
		ID:   "call-" + name,
		Type: "function",
		Function: &llm.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestExecutor_SingleCall(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeTool{name: "echo"})
	executor := NewExecutor(registry)

	results := executor.Execute(context.Background(), []*llm.ToolCall{makeCall("echo", "{}")})

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if !results[0].Result.Success {
		t.Errorf("Expected success, got error: %s", results[0].Result.Error)
	}
	if results[0].CallID != "call-echo" {
		t.Errorf("Expected call ID to be preserved, got %s", results[0].CallID)
	}
}

func TestExecutor_UnknownTool(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutor(registry)

	results := executor.Execute(context.Background(), []*llm.ToolCall{makeCall("missing", "{}")})

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Result.Success {
		t.Error("Expected failure for unknown tool")
	}
	if !strings.Contains(results[0].Result.Error, "missing") {
		t.Errorf("Error should name the unknown tool, got: %s", results[0].Result.Error)
	}
}

func TestExecutor_MissingRequiredArg(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeTool{name: "lookup", required: []string{"ticker"}})
	executor := NewExecutor(registry)

	results := executor.Execute(context.Background(), []*llm.ToolCall{makeCall("lookup", `{"other": 1}`)})

	if results[0].Result.Success {
		t.Error("Expected validation failure for missing required field")
	}
	if !strings.Contains(results[0].Result.Error, "ticker") {
		t.Errorf("Error should name the missing field, got: %s", results[0].Result.Error)
	}
}

func TestExecutor_MalformedArgs(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeTool{name: "lookup"})
	executor := NewExecutor(registry)

	results := executor.Execute(context.Background(), []*llm.ToolCall{makeCall("lookup", `{not json`)})

	if results[0].Result.Success {
		t.Error("Expected failure for malformed JSON arguments")
	}
}

func TestExecutor_RequiredFromAnySlice(t *testing.T) {
	// Schemas that round-trip through JSON carry required as []any
	registry := NewRegistry()
	registry.Register(&anySliceRequiredTool{})
	executor := NewExecutor(registry)

	results := executor.Execute(context.Background(), []*llm.ToolCall{makeCall("any_required", `{}`)})
	if results[0].Result.Success {
		t.Error("Expected validation failure for missing required field from []any schema")
	}
}

type anySliceRequiredTool struct{}

func (t *anySliceRequiredTool) Name() string        { return "any_required" }
func (t *anySliceRequiredTool) DisplayName() string { return "Any Required" }
func (t *anySliceRequiredTool) Description() string { return "required list as []any" }

func (t *anySliceRequiredTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []any{"field"},
	}
}

func (t *anySliceRequiredTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	return &Result{Success: true, Output: "ok"}, nil
}

func TestExecutor_ToolErrorBecomesResult(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeTool{
		name: "boom",
		execute: func(ctx context.Context, params json.RawMessage) (*Result, error) {
			return nil, fmt.Errorf("upstream exploded")
		},
	})
	executor := NewExecutor(registry)

	results := executor.Execute(context.Background(), []*llm.ToolCall{makeCall("boom", "{}")})

	if results[0].Result.Success {
		t.Error("Expected failure result when tool returns an error")
	}
	if !strings.Contains(results[0].Result.Error, "upstream exploded") {
		t.Errorf("Error should carry the tool's message, got: %s", results[0].Result.Error)
	}
}

func TestExecutor_EmptyOutputPlaceholder(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeTool{
		name: "silent",
		execute: func(ctx context.Context, params json.RawMessage) (*Result, error) {
			return &Result{Success: true, Output: ""}, nil
		},
	})
	executor := NewExecutor(registry)

	results := executor.Execute(context.Background(), []*llm.ToolCall{makeCall("silent", "{}")})

	if results[0].Result.Output != EmptyOutputPlaceholder {
		t.Errorf("Expected placeholder for empty output, got: %q", results[0].Result.Output)
	}
}

func TestExecutor_ParallelOrderPreserved(t *testing.T) {
	registry := NewRegistry()
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("tool%d", i)
		delay := time.Duration(4-i) * 10 * time.Millisecond
		registry.Register(&fakeTool{
			name: name,
			execute: func(ctx context.Context, params json.RawMessage) (*Result, error) {
				time.Sleep(delay)
				return &Result{Success: true, Output: name}, nil
			},
		})
	}
	executor := NewExecutor(registry)

	calls := []*llm.ToolCall{
		makeCall("tool0", "{}"),
		makeCall("tool1", "{}"),
		makeCall("tool2", "{}"),
		makeCall("tool3", "{}"),
	}
	results := executor.Execute(context.Background(), calls)

	// Later calls finish first, but results must match request order
	for i, res := range results {
		want := fmt.Sprintf("tool%d", i)
		if res.ToolName != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, res.ToolName)
		}
		if res.Result.Output != want {
			t.Errorf("Position %d: expected output %s, got %s", i, want, res.Result.Output)
		}
	}
}

func TestExecutor_SequentialMode(t *testing.T) {
	registry := NewRegistry()
	var concurrent, peak int32
	registry.Register(&fakeTool{
		name: "counted",
		execute: func(ctx context.Context, params json.RawMessage) (*Result, error) {
			n := atomic.AddInt32(&concurrent, 1)
			if n > atomic.LoadInt32(&peak) {
				atomic.StoreInt32(&peak, n)
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&concurrent, -1)
			return &Result{Success: true, Output: "ok"}, nil
		},
	})
	executor := NewExecutor(registry)
	executor.SetMode(ExecutionModeSequential)

	calls := []*llm.ToolCall{makeCall("counted", "{}"), makeCall("counted", "{}"), makeCall("counted", "{}")}
	executor.Execute(context.Background(), calls)

	if atomic.LoadInt32(&peak) != 1 {
		t.Errorf("Sequential mode should run one call at a time, peak was %d", peak)
	}
}

func TestExecutor_CallSurvivesCancelledTurn(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeTool{
		name: "slow",
		execute: func(ctx context.Context, params json.RawMessage) (*Result, error) {
			select {
			case <-time.After(30 * time.Millisecond):
				return &Result{Success: true, Output: "finished"}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})
	executor := NewExecutor(registry)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	results := executor.Execute(ctx, []*llm.ToolCall{makeCall("slow", "{}")})

	if !results[0].Result.Success {
		t.Errorf("Dispatched call should finish despite cancelled turn, got: %s", results[0].Result.Error)
	}
	if results[0].Result.Output != "finished" {
		t.Errorf("Expected finished, got %s", results[0].Result.Output)
	}
}

func TestExecutor_CallTimeout(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeTool{
		name: "hang",
		execute: func(ctx context.Context, params json.RawMessage) (*Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	executor := NewExecutor(registry)
	executor.SetCallTimeout(10 * time.Millisecond)

	results := executor.Execute(context.Background(), []*llm.ToolCall{makeCall("hang", "{}")})

	if results[0].Result.Success {
		t.Error("Expected timeout failure for hanging tool")
	}
}
