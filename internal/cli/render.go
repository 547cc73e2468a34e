package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"finagent/internal/agent"
)

// TurnRenderer renders an agent event stream as an interactive transcript.
// It is the Sink handed to the agent loop for chat sessions.
type TurnRenderer struct {
	writer   *StreamingWriter
	inAnswer bool
	jsonMode bool
}

func NewTurnRenderer(writer *StreamingWriter) *TurnRenderer {
	return &TurnRenderer{writer: writer}
}

// SetJSONMode switches to one-JSON-object-per-line output for piping
func (r *TurnRenderer) SetJSONMode(enabled bool) {
	r.jsonMode = enabled
}

// Sink returns the event callback for the agent loop
func (r *TurnRenderer) Sink() agent.Sink {
	return r.Render
}

// Render handles a single agent event
func (r *TurnRenderer) Render(ev agent.Event) {
	if r.jsonMode {
		r.renderJSON(ev)
		return
	}

	switch ev.Type {
	case agent.EventStatus:
		r.renderStatus(ev)

	case agent.EventThought:
		if ev.Thought != "" {
			r.writer.WriteColored(fmt.Sprintf("\n💭 %s\n", ev.Thought), ColorGray)
		}
		if ev.Action != "" {
			r.writer.WriteColored(fmt.Sprintf("→ %s\n", ev.Action), ColorCyan)
		}

	case agent.EventToolCall:
		r.writer.WriteColored(fmt.Sprintf("\n🔧 %s", ev.ToolName), ColorYellow)
		if len(ev.ToolInput) > 0 && string(ev.ToolInput) != "{}" {
			r.writer.WriteColored(fmt.Sprintf(" %s", compactArgs(string(ev.ToolInput))), ColorGray)
		}
		r.writer.WriteLine("")

	case agent.EventToolResult:
		mark, color := "✓", ColorGreen
		if !ev.Success {
			mark, color = "✗", ColorRed
		}
		r.writer.WriteColored(fmt.Sprintf("  %s %s (%dms)\n", mark, ev.ToolName, ev.DurationMS), color)
		if r.writer.verbose && ev.ToolOutput != "" {
			r.writer.WriteColored(indent(truncate(ev.ToolOutput, 500), "    "), ColorGray)
			r.writer.WriteLine("")
		}

	case agent.EventAnswer:
		if !r.inAnswer {
			r.writer.WriteLine("")
			r.inAnswer = true
		}
		r.writer.Write(ev.Content)

	case agent.EventComplete:
		if r.inAnswer {
			r.writer.WriteLine("")
			r.inAnswer = false
		}
		r.writer.WriteColored(fmt.Sprintf("\n(%d iterations, %.1fs)\n", ev.Iterations, float64(ev.ElapsedMS)/1000), ColorGray)

	case agent.EventError:
		r.writer.WriteColored(fmt.Sprintf("\nError: %s\n", ev.Error), ColorRed)
	}
}

// renderJSON writes the event as a single JSON line
func (r *TurnRenderer) renderJSON(ev agent.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	r.writer.WriteLine(string(data))
}

func (r *TurnRenderer) renderStatus(ev agent.Event) {
	switch ev.Status {
	case agent.StatusCancelled:
		r.writer.WriteColored("\nCancelled.\n", ColorYellow)
	case agent.StatusCompleted, agent.StatusError:
		// Terminal states already render through complete/error events
	default:
		if r.writer.verbose {
			r.writer.WriteColored(fmt.Sprintf("· %s\n", ev.Message), ColorGray)
		}
	}
}

func compactArgs(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return truncate(s, 120)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
