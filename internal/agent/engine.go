package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"finagent/internal/llm"
	"finagent/internal/logger"
	"finagent/internal/tool"

	"github.com/google/uuid"
)

// Engine runs the ReAct loop: it alternates between asking the model for a
// decision and dispatching the requested tool calls, until the model answers
// or the iteration cap forces one. An Engine holds no per-turn state; each
// Run builds its own transcript, so engines are safe to reuse across turns
// that share no history.
type Engine struct {
	name      string
	llmClient llm.Client
	registry  *tool.Registry
	executor  *tool.Executor
	config    *Config
}

func NewEngine(name string, client llm.Client, registry *tool.Registry, cfg *Config) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 10
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}

	executor := tool.NewExecutor(registry)
	if cfg.ExecutionMode != "" {
		executor.SetMode(cfg.ExecutionMode)
	}

	return &Engine{
		name:      name,
		llmClient: client,
		registry:  registry,
		executor:  executor,
		config:    cfg,
	}
}

func (e *Engine) Name() string {
	return e.name
}

// Run executes one turn without streaming
func (e *Engine) Run(ctx context.Context, input *Input) (*TurnResult, error) {
	return e.RunStream(ctx, input, nil)
}

// RunStream executes one turn, pushing events into sink as each loop
// transition happens. A reasoning transport failure returns a non-nil error
// and no result; every other outcome (answered, iteration limit,
// cancellation) returns a TurnResult whose Termination says what happened.
func (e *Engine) RunStream(ctx context.Context, input *Input, sink Sink) (*TurnResult, error) {
	log := input.Logger
	if log == nil {
		log = logger.NewLogger(io.Discard, logger.LevelError)
	}

	em := &emitter{sink: sink}
	startTime := time.Now()

	result := &TurnResult{
		TurnID: uuid.NewString(),
	}

	messages := make([]llm.Message, 0, len(input.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: e.config.SystemPrompt})
	messages = append(messages, input.History...)
	messages = append(messages, llm.Message{
		Role:      llm.RoleUser,
		Content:   input.Query,
		Timestamp: time.Now(),
	})

	maxIterations := input.MaxIterations
	if maxIterations <= 0 {
		maxIterations = e.config.MaxIterations
	}

	temperature := input.Temperature
	if temperature == 0 {
		temperature = e.config.Temperature
	}

	log.TurnStart(input.Query)
	em.status(StatusThinking, "Analyzing your request...")

	finish := func(answer string, reason TerminationReason) *TurnResult {
		result.Answer = answer
		result.Termination = reason
		result.Elapsed = time.Since(startTime)
		result.Messages = messages
		log.Answer(answer)
		log.TurnEnd(result.Elapsed, result.Iterations, len(result.ToolCalls))
		em.answer(answer)
		em.terminalStatus(StatusCompleted, "Response complete")
		em.emit(Event{
			Type:       EventComplete,
			Iterations: result.Iterations,
			ElapsedMS:  result.Elapsed.Milliseconds(),
		})
		return result
	}

	for iteration := 1; iteration <= maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return e.cancelled(result, messages, startTime, em, log), nil
		}

		result.Iterations = iteration
		log.Info("Iteration %d: requesting decision", iteration)
		em.statusProgress(StatusGeneratingResponse,
			fmt.Sprintf("Reasoning (step %d)...", iteration),
			min(iteration*100/maxIterations, 90))

		resp, err := e.llmClient.Chat(ctx, &llm.ChatRequest{
			Messages:    messages,
			Tools:       e.registry.Definitions(),
			Temperature: temperature,
			MaxTokens:   e.config.MaxTokens,
		})
		if err != nil {
			if ctx.Err() != nil {
				return e.cancelled(result, messages, startTime, em, log), nil
			}
			log.Error("Reasoning call failed: %v", err)
			em.terminalStatus(StatusError, "Reasoning failed")
			em.emit(Event{Type: EventError, Error: err.Error()})
			return nil, fmt.Errorf("reasoning call failed: %w", err)
		}

		messages = append(messages, resp.Message)
		thought := strings.TrimSpace(resp.Message.Content)

		// Decision: tool calls requested this iteration
		if resp.StopReason == llm.StopReasonToolCalls && len(resp.Message.ToolCalls) > 0 {
			calls := resp.Message.ToolCalls
			ensureCallIDs(calls)

			result.Steps = append(result.Steps, ReasoningStep{
				Iteration: iteration,
				Thought:   thought,
				Action:    e.actionLabel(calls),
			})
			result.Steps[len(result.Steps)-1].Calls = calls

			log.Thought(iteration, thought, e.actionLabel(calls))
			if thought != "" {
				em.status(StatusThinking, thought)
			}
			em.emit(Event{
				Type:      EventThought,
				Iteration: iteration,
				Thought:   thought,
				Action:    e.actionLabel(calls),
			})

			em.status(StatusCallingTool, fmt.Sprintf("Using %s...", e.actionLabel(calls)))
			for _, tc := range calls {
				log.ToolCall(tc.Function.Name, tc.Function.Arguments)
			}

			// Fan out, join, then report in request order
			batch := e.executor.Execute(ctx, calls)

			em.status(StatusProcessingResults, fmt.Sprintf("Processing results from %s...", e.actionLabel(calls)))
			for i, cr := range batch {
				display := e.registry.DisplayName(cr.ToolName)
				em.emit(Event{
					Type:             EventToolCall,
					ToolName:         display,
					ToolInternalName: cr.ToolName,
					ToolInput:        cr.Args,
				})
				em.emit(Event{
					Type:             EventToolResult,
					ToolName:         display,
					ToolInternalName: cr.ToolName,
					ToolOutput:       observationText(cr),
					Success:          cr.Result.Success,
					DurationMS:       cr.Duration().Milliseconds(),
				})
				log.ToolResult(cr.ToolName, cr.Result.Success, observationText(cr), cr.Duration())

				result.ToolCalls = append(result.ToolCalls, cr)
				messages = append(messages, llm.Message{
					Role:       llm.RoleTool,
					ToolCallID: calls[i].ID,
					Name:       cr.ToolName,
					Content:    observationText(cr),
					Timestamp:  cr.EndTime,
				})
			}

			// Cancellation checkpoint: the batch above was allowed to
			// finish; no further reasoning calls are issued.
			if ctx.Err() != nil {
				return e.cancelled(result, messages, startTime, em, log), nil
			}
			continue
		}

		// Decision: final answer
		answer := thought
		if resp.StopReason == llm.StopReasonLength {
			answer += "\n[Response truncated due to length limit]"
		}
		result.Steps = append(result.Steps, ReasoningStep{
			Iteration: iteration,
			Thought:   thought,
			Action:    "final_answer",
		})
		return finish(answer, TerminationAnswered), nil
	}

	// Iteration cap hit: one last constrained call with the tool catalog
	// withheld, so termination is guaranteed.
	log.Info("Iteration limit reached (%d), forcing final answer", maxIterations)
	em.statusProgress(StatusGeneratingResponse, "Finalizing answer...", 95)

	messages = append(messages, llm.Message{
		Role:      llm.RoleUser,
		Content:   forcedAnswerPrompt,
		Timestamp: time.Now(),
	})

	resp, err := e.llmClient.Chat(ctx, &llm.ChatRequest{
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   e.config.MaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return e.cancelled(result, messages, startTime, em, log), nil
		}
		log.Error("Forced answer call failed: %v", err)
		em.terminalStatus(StatusError, "Reasoning failed")
		em.emit(Event{Type: EventError, Error: err.Error()})
		return nil, fmt.Errorf("forced answer call failed: %w", err)
	}

	messages = append(messages, resp.Message)
	answer := strings.TrimSpace(resp.Message.Content)
	if answer == "" {
		answer = forcedAnswerFallback
	}
	return finish(answer, TerminationIterationLimit), nil
}

func (e *Engine) cancelled(result *TurnResult, messages []llm.Message, startTime time.Time, em *emitter, log *logger.Logger) *TurnResult {
	log.Info("Turn cancelled after %d iteration(s)", result.Iterations)
	em.terminalStatus(StatusCancelled, "Turn cancelled")
	result.Termination = TerminationCancelled
	result.Elapsed = time.Since(startTime)
	result.Messages = messages
	return result
}

// actionLabel renders the chosen action as the human-readable tool names
func (e *Engine) actionLabel(calls []*llm.ToolCall) string {
	names := make([]string, len(calls))
	for i, tc := range calls {
		names[i] = e.registry.DisplayName(tc.Function.Name)
	}
	return strings.Join(names, ", ")
}

// ensureCallIDs backfills ids for providers that omit them, so tool
// observations can always be tied back to their requests.
func ensureCallIDs(calls []*llm.ToolCall) {
	for _, tc := range calls {
		if tc.ID == "" {
			tc.ID = "call_" + uuid.NewString()
		}
	}
}

// observationText is what the model sees for a completed tool call
func observationText(cr *tool.CallResult) string {
	if cr.Result.Success {
		return cr.Result.Output
	}
	payload, err := json.Marshal(map[string]string{"error": cr.Result.Error})
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, cr.Result.Error)
	}
	return string(payload)
}
