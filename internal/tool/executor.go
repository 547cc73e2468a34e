package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"finagent/internal/llm"
)

type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
	ExecutionModeParallel   ExecutionMode = "parallel"
)

// DefaultCallTimeout bounds a single tool invocation. Tools doing network
// lookups (market data, MCP servers) must not stall a turn indefinitely.
const DefaultCallTimeout = 30 * time.Second

// Executor wraps tool invocations with argument validation, timing, and
// error capture. Tool failures never escape as errors: every call produces
// a CallResult the agent loop can reason about.
type Executor struct {
	registry    *Registry
	mode        ExecutionMode
	callTimeout time.Duration
}

func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry:    registry,
		mode:        ExecutionModeParallel,
		callTimeout: DefaultCallTimeout,
	}
}

func (e *Executor) SetMode(mode ExecutionMode) {
	e.mode = mode
}

func (e *Executor) SetCallTimeout(d time.Duration) {
	if d > 0 {
		e.callTimeout = d
	}
}

// Execute runs a batch of tool calls from one reasoning step. Results are
// always returned in request order, regardless of completion order, so the
// transcript stays deterministic for the next reasoning call.
func (e *Executor) Execute(ctx context.Context, toolCalls []*llm.ToolCall) []*CallResult {
	if e.mode == ExecutionModeSequential || len(toolCalls) == 1 {
		return e.executeSequential(ctx, toolCalls)
	}
	return e.executeParallel(ctx, toolCalls)
}

func (e *Executor) executeSequential(ctx context.Context, toolCalls []*llm.ToolCall) []*CallResult {
	results := make([]*CallResult, len(toolCalls))
	for i, tc := range toolCalls {
		results[i] = e.executeOne(ctx, tc)
	}
	return results
}

// executeParallel fans the batch out and joins before returning. Calls in a
// batch share no mutable state, so any completion order is safe; indexing by
// request position restores the original order.
func (e *Executor) executeParallel(ctx context.Context, toolCalls []*llm.ToolCall) []*CallResult {
	results := make([]*CallResult, len(toolCalls))

	var wg sync.WaitGroup
	for i, tc := range toolCalls {
		wg.Add(1)
		go func(idx int, call *llm.ToolCall) {
			defer wg.Done()
			results[idx] = e.executeOne(ctx, call)
		}(i, tc)
	}

	wg.Wait()
	return results
}

// EmptyOutputPlaceholder is returned when a tool produces no output.
// LLM APIs reject empty message content with 400 errors.
const EmptyOutputPlaceholder = "(Tool executed successfully with no output)"

func (e *Executor) executeOne(ctx context.Context, tc *llm.ToolCall) *CallResult {
	startTime := time.Now()

	fail := func(err error) *CallResult {
		return &CallResult{
			ToolName:  tc.Function.Name,
			CallID:    tc.ID,
			Args:      json.RawMessage(tc.Function.Arguments),
			Result:    &Result{Success: false, Error: err.Error()},
			StartTime: startTime,
			EndTime:   time.Now(),
		}
	}

	t, err := e.registry.Get(tc.Function.Name)
	if err != nil {
		return fail(err)
	}

	if err := validateArgs(t, tc.Function.Arguments); err != nil {
		return fail(err)
	}

	// Once dispatched, a call runs to completion even if the turn is
	// cancelled, so external requests are never orphaned mid-flight. The
	// call timeout still bounds it.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.callTimeout)
	defer cancel()

	result, err := t.Execute(callCtx, json.RawMessage(tc.Function.Arguments))
	if err != nil {
		return fail(fmt.Errorf("execution error: %w", err))
	}

	if result.Output == "" {
		result.Output = EmptyOutputPlaceholder
	}

	return &CallResult{
		ToolName:  tc.Function.Name,
		CallID:    tc.ID,
		Args:      json.RawMessage(tc.Function.Arguments),
		Result:    result,
		StartTime: startTime,
		EndTime:   time.Now(),
	}
}

// validateArgs checks the call's argument payload against the schema's
// required list before the tool runs.
func validateArgs(t Tool, rawArgs string) error {
	var args map[string]any
	if rawArgs == "" {
		args = map[string]any{}
	} else if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", ErrInvalidArguments, err)
	}

	required, _ := t.Parameters()["required"].([]string)
	if required == nil {
		// Schemas built from JSON round-trips carry []any instead
		if anyList, ok := t.Parameters()["required"].([]any); ok {
			for _, f := range anyList {
				if s, ok := f.(string); ok {
					required = append(required, s)
				}
			}
		}
	}

	for _, field := range required {
		if _, present := args[field]; !present {
			return fmt.Errorf("%w: missing required field %q", ErrInvalidArguments, field)
		}
	}
	return nil
}
