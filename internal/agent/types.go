package agent

import (
	"time"

	"finagent/internal/llm"
	"finagent/internal/logger"
	"finagent/internal/tool"
)

// Config controls one agent engine instance
type Config struct {
	Temperature   float32
	MaxTokens     int
	MaxIterations int
	SystemPrompt  string
	ExecutionMode tool.ExecutionMode
}

// Input carries everything one turn needs: the user query, prior
// conversation history, and per-turn overrides.
type Input struct {
	Query         string
	History       []llm.Message
	MaxIterations int
	Temperature   float32
	Logger        *logger.Logger
}

// TerminationReason says how a turn ended
type TerminationReason string

const (
	// TerminationAnswered means the model produced a final answer on its own
	TerminationAnswered TerminationReason = "answered"
	// TerminationIterationLimit means the iteration cap was hit and a forced
	// answer was produced from what had been gathered
	TerminationIterationLimit TerminationReason = "iteration_limit"
	// TerminationCancelled means the caller cancelled the turn
	TerminationCancelled TerminationReason = "cancelled"
	// TerminationError means a reasoning transport failure killed the turn
	TerminationError TerminationReason = "error"
)

// ReasoningStep records one iteration of the loop: the model's thought and
// the action it chose. Steps are append-only and their iteration index is
// strictly increasing within a turn.
type ReasoningStep struct {
	Iteration int
	Thought   string
	Action    string
	Calls     []*llm.ToolCall
}

// TurnResult is produced exactly once per user query
type TurnResult struct {
	TurnID      string
	Answer      string
	Steps       []ReasoningStep
	ToolCalls   []*tool.CallResult
	Iterations  int
	Termination TerminationReason
	Elapsed     time.Duration
	Messages    []llm.Message
}
