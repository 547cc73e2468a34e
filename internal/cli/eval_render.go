package cli

import (
	"encoding/json"
	"fmt"

	"finagent/internal/eval"
)

// EvalRenderer renders an evaluation event stream as a run report
type EvalRenderer struct {
	writer   *StreamingWriter
	jsonMode bool
}

func NewEvalRenderer(writer *StreamingWriter) *EvalRenderer {
	return &EvalRenderer{writer: writer}
}

// SetJSONMode switches to one-JSON-object-per-line output for piping
func (r *EvalRenderer) SetJSONMode(enabled bool) {
	r.jsonMode = enabled
}

// Sink returns the event callback for the evaluation runner
func (r *EvalRenderer) Sink() eval.Sink {
	return r.Render
}

// Render handles a single evaluation event
func (r *EvalRenderer) Render(ev eval.Event) {
	if r.jsonMode {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		r.writer.WriteLine(string(data))
		return
	}

	switch ev.Type {
	case eval.EventStatus:
		r.writer.WriteColored(fmt.Sprintf("%s\n", ev.Message), ColorGray)

	case eval.EventTestCaseStart:
		r.writer.WriteColored(fmt.Sprintf("\n[%d/%d] %s ", ev.Current, ev.Total, ev.TestID), ColorBold)
		r.writer.WriteColored(truncate(ev.Query, 80), ColorGray)
		r.writer.WriteLine("")

	case eval.EventTestCaseResult:
		r.renderResult(ev.Result)

	case eval.EventSummary:
		r.renderSummary(ev.Summary)

	case eval.EventError:
		r.writer.WriteColored(fmt.Sprintf("  ERROR %s: %s\n", ev.TestID, ev.Message), ColorRed)
	}
}

func (r *EvalRenderer) renderResult(res *eval.EvaluationResult) {
	if res == nil {
		return
	}

	verdict, color := "PASS", ColorGreen
	if !res.Passed {
		verdict, color = "FAIL", ColorRed
	}
	r.writer.WriteColored(fmt.Sprintf("  %s %.2f", verdict, res.OverallScore), color)

	for _, m := range res.Metrics {
		r.writer.WriteColored(fmt.Sprintf("  %s=%.2f", m.Name, m.Score), ColorGray)
	}
	r.writer.WriteLine("")

	if r.writer.verbose {
		for _, m := range res.Metrics {
			if m.Details != "" {
				r.writer.WriteColored(fmt.Sprintf("    %s: %s\n", m.Name, truncate(m.Details, 200)), ColorGray)
			}
		}
	}
}

func (r *EvalRenderer) renderSummary(s *eval.EvaluationSummary) {
	if s == nil {
		return
	}

	r.writer.WriteLine("")
	r.writer.WriteColored("══════════ Evaluation Summary ══════════\n", ColorBold)
	r.writer.WriteLine(fmt.Sprintf("  Tests:   %d total, %d passed, %d failed, %d errored",
		s.TotalTests, s.Passed, s.Failed, s.Errored))
	r.writer.WriteLine(fmt.Sprintf("  Tool selection:  %.3f", s.AverageToolSelection))
	r.writer.WriteLine(fmt.Sprintf("  Argument match:  %.3f", s.AverageArgumentMatch))
	r.writer.WriteLine(fmt.Sprintf("  Faithfulness:    %.3f", s.AverageFaithfulness))

	color := ColorGreen
	if s.OverallAverage < 0.7 {
		color = ColorYellow
	}
	r.writer.WriteColored(fmt.Sprintf("  Overall:         %.3f\n", s.OverallAverage), color)
}
