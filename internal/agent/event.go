package agent

import (
	"encoding/json"
	"strings"
)

// EventType identifies one kind of outward event
type EventType string

const (
	EventStatus     EventType = "status"
	EventThought    EventType = "thought"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventAnswer     EventType = "answer"
	EventComplete   EventType = "complete"
	EventError      EventType = "error"
)

// Status names the loop phase carried by a status event
type Status string

const (
	StatusThinking           Status = "thinking"
	StatusCallingTool        Status = "calling_tool"
	StatusProcessingResults  Status = "processing_results"
	StatusGeneratingResponse Status = "generating_response"
	StatusCompleted          Status = "completed"
	StatusCancelled          Status = "cancelled"
	StatusError              Status = "error"
)

// Event is one flat record of the turn's event stream. Fields are populated
// per type; the stream order always matches the loop's own transition order,
// and every tool_result immediately follows its tool_call.
type Event struct {
	Type             EventType       `json:"type"`
	Status           Status          `json:"status,omitempty"`
	Message          string          `json:"message,omitempty"`
	Progress         int             `json:"progress,omitempty"`
	Iteration        int             `json:"iteration,omitempty"`
	Thought          string          `json:"thought,omitempty"`
	Action           string          `json:"action,omitempty"`
	ToolName         string          `json:"tool_name,omitempty"`
	ToolInternalName string          `json:"tool_internal_name,omitempty"`
	ToolInput        json.RawMessage `json:"tool_input,omitempty"`
	ToolOutput       string          `json:"tool_output,omitempty"`
	Success          bool            `json:"success,omitempty"`
	DurationMS       int64           `json:"duration_ms,omitempty"`
	Content          string          `json:"content,omitempty"`
	Iterations       int             `json:"iterations,omitempty"`
	ElapsedMS        int64           `json:"elapsed_ms,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// Sink consumes the turn's events in emission order. It is called
// synchronously from the agent loop, so implementations must not block
// longer than their transport requires. A nil Sink disables streaming.
type Sink func(Event)

// emitter is the translation layer between loop transitions and the sink.
// It holds no state beyond the sink and a terminal-status latch.
type emitter struct {
	sink     Sink
	terminal bool
}

func (e *emitter) emit(ev Event) {
	if e.sink != nil {
		e.sink(ev)
	}
}

func (e *emitter) status(s Status, message string) {
	e.emit(Event{Type: EventStatus, Status: s, Message: message})
}

func (e *emitter) statusProgress(s Status, message string, progress int) {
	e.emit(Event{Type: EventStatus, Status: s, Message: message, Progress: progress})
}

// terminalStatus emits the turn's terminal status exactly once
func (e *emitter) terminalStatus(s Status, message string) {
	if e.terminal {
		return
	}
	e.terminal = true
	e.emit(Event{Type: EventStatus, Status: s, Message: message, Progress: 100})
}

// answer streams the final answer word by word for incremental delivery
func (e *emitter) answer(text string) {
	if e.sink == nil {
		return
	}
	words := strings.Split(text, " ")
	for i, word := range words {
		chunk := word
		if i > 0 {
			chunk = " " + word
		}
		e.emit(Event{Type: EventAnswer, Content: chunk})
	}
}
