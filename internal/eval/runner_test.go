package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"finagent/internal/agent"
	"finagent/internal/tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgent maps each query to a canned turn result or error
type fakeAgent struct {
	turns map[string]*agent.TurnResult
	errs  map[string]error
	delay time.Duration
}

func (a *fakeAgent) Run(ctx context.Context, input *agent.Input) (*agent.TurnResult, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return &agent.TurnResult{Termination: agent.TerminationCancelled}, nil
		}
	}
	if err, ok := a.errs[input.Query]; ok {
		return nil, err
	}
	if turn, ok := a.turns[input.Query]; ok {
		return turn, nil
	}
	return &agent.TurnResult{
		Answer:      "default answer",
		Termination: agent.TerminationAnswered,
	}, nil
}

// fakeJudge returns a fixed score per answer, or a transport error
type fakeJudge struct {
	scores map[string]float64
	err    error
}

func (j *fakeJudge) Evaluate(ctx context.Context, query string, toolOutputs, expectedContains []string, answer string) (*Verdict, error) {
	if j.err != nil {
		return nil, j.err
	}
	score, ok := j.scores[answer]
	if !ok {
		score = 1.0
	}
	return &Verdict{Score: score, Explanation: "canned"}, nil
}

func turnWithCalls(answer string, calls ...*tool.CallResult) *agent.TurnResult {
	return &agent.TurnResult{
		Answer:      answer,
		ToolCalls:   calls,
		Termination: agent.TerminationAnswered,
	}
}

func priceCall(ticker string) *tool.CallResult {
	args, _ := json.Marshal(map[string]string{"ticker": ticker})
	return &tool.CallResult{
		ToolName: "get_stock_price",
		Args:     args,
		Result:   &tool.Result{Success: true, Output: fmt.Sprintf(`{"ticker": %q, "price": 230.12}`, ticker)},
	}
}

func simpleCase(id, query string) TestCase {
	return TestCase{
		TestID:        id,
		Query:         query,
		ExpectedTools: []string{"get_stock_price"},
		ExpectedArgs:  []map[string]any{{"ticker": "AAPL"}},
	}
}

func TestRunner_PerfectCase(t *testing.T) {
	ag := &fakeAgent{turns: map[string]*agent.TurnResult{
		"AAPL price?": turnWithCalls("AAPL is at $230.12", priceCall("AAPL")),
	}}
	runner := NewRunner(ag, &fakeJudge{}, nil, RunnerConfig{}, nil)

	var events []Event
	summary, err := runner.Run(context.Background(), []TestCase{simpleCase("t1", "AAPL price?")},
		func(ev Event) { events = append(events, ev) })

	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalTests)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Errored)
	assert.InDelta(t, 1.0, summary.OverallAverage, 1e-9)

	// start, result, status, summary, final status (after the loaded status)
	require.NotEmpty(t, events)
	assert.Equal(t, EventStatus, events[0].Type)
	assert.Contains(t, events[0].Message, "1 test cases")

	var types []EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, EventTestCaseStart)
	assert.Contains(t, types, EventTestCaseResult)
	assert.Contains(t, types, EventSummary)
}

func TestRunner_PassThresholdBoundary(t *testing.T) {
	// Judge score 0.1 with perfect tool metrics: overall = (1+1+0.1)/3 = 0.7
	ag := &fakeAgent{turns: map[string]*agent.TurnResult{
		"q-pass": turnWithCalls("boundary answer", priceCall("AAPL")),
	}}
	judge := &fakeJudge{scores: map[string]float64{"boundary answer": 0.1}}
	runner := NewRunner(ag, judge, nil, RunnerConfig{PassThreshold: 0.7}, nil)

	summary, err := runner.Run(context.Background(), []TestCase{simpleCase("t1", "q-pass")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Passed, "a score exactly at the threshold passes")

	// Slightly below the threshold fails
	judge.scores["boundary answer"] = 0.09
	summary, err = runner.Run(context.Background(), []TestCase{simpleCase("t1", "q-pass")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunner_ContinueOnError(t *testing.T) {
	ag := &fakeAgent{
		turns: map[string]*agent.TurnResult{
			"good": turnWithCalls("fine", priceCall("AAPL")),
		},
		errs: map[string]error{
			"broken": fmt.Errorf("reasoning call failed: connection refused"),
		},
	}
	runner := NewRunner(ag, &fakeJudge{}, nil, RunnerConfig{}, nil)

	cases := []TestCase{
		simpleCase("t1", "broken"),
		simpleCase("t2", "good"),
	}

	var events []Event
	summary, err := runner.Run(context.Background(), cases, func(ev Event) { events = append(events, ev) })

	require.NoError(t, err, "errored cases are recorded, not fatal")
	assert.Equal(t, 2, summary.TotalTests)
	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, 1, summary.Passed)

	// Averages cover only the completed case
	assert.InDelta(t, 1.0, summary.OverallAverage, 1e-9)

	var sawError bool
	for _, ev := range events {
		if ev.Type == EventError {
			sawError = true
			assert.Equal(t, "t1", ev.TestID)
			assert.True(t, ev.Continue)
		}
	}
	assert.True(t, sawError)
}

func TestRunner_StopOnError(t *testing.T) {
	ag := &fakeAgent{errs: map[string]error{
		"broken": fmt.Errorf("boom"),
	}}
	runner := NewRunner(ag, &fakeJudge{}, nil, RunnerConfig{StopOnError: true}, nil)

	cases := []TestCase{
		simpleCase("t1", "broken"),
		simpleCase("t2", "never reached"),
	}

	summary, err := runner.Run(context.Background(), cases, nil)

	require.Error(t, err)
	assert.Equal(t, 1, summary.TotalTests, "second case never ran")
	assert.Equal(t, 1, summary.Errored)
}

func TestRunner_JudgeTransportErrorFailsOneCase(t *testing.T) {
	ag := &fakeAgent{turns: map[string]*agent.TurnResult{
		"q": turnWithCalls("ans", priceCall("AAPL")),
	}}
	judge := &fakeJudge{err: fmt.Errorf("%w: dial tcp", ErrJudgeTransport)}
	runner := NewRunner(ag, judge, nil, RunnerConfig{}, nil)

	summary, err := runner.Run(context.Background(), []TestCase{simpleCase("t1", "q")}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, 0, summary.Passed+summary.Failed)
}

func TestRunner_CaseTimeout(t *testing.T) {
	ag := &fakeAgent{delay: 200 * time.Millisecond}
	runner := NewRunner(ag, &fakeJudge{}, nil, RunnerConfig{CaseTimeout: 20 * time.Millisecond}, nil)

	summary, err := runner.Run(context.Background(), []TestCase{simpleCase("t1", "slow query")}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errored, "a timed-out case errors instead of hanging the run")
}

func TestRunner_ParallelPreservesCaseOrder(t *testing.T) {
	ag := &fakeAgent{turns: map[string]*agent.TurnResult{}}
	cases := make([]TestCase, 6)
	for i := range cases {
		q := fmt.Sprintf("query-%d", i)
		cases[i] = simpleCase(fmt.Sprintf("t%d", i), q)
		ag.turns[q] = turnWithCalls(fmt.Sprintf("answer-%d", i), priceCall("AAPL"))
	}

	runner := NewRunner(ag, &fakeJudge{}, nil, RunnerConfig{Concurrency: 4}, nil)

	var events []Event
	summary, err := runner.Run(context.Background(), cases, func(ev Event) { events = append(events, ev) })

	require.NoError(t, err)
	assert.Equal(t, 6, summary.TotalTests)
	assert.Equal(t, 6, summary.Passed)

	// Despite concurrent execution, case events arrive in dataset order
	var starts []string
	var results []string
	for _, ev := range events {
		switch ev.Type {
		case EventTestCaseStart:
			starts = append(starts, ev.TestID)
		case EventTestCaseResult:
			results = append(results, ev.TestID)
		}
	}
	assert.Equal(t, []string{"t0", "t1", "t2", "t3", "t4", "t5"}, starts)
	assert.Equal(t, []string{"t0", "t1", "t2", "t3", "t4", "t5"}, results)

	// Summary comes before the final status and after all results
	assert.Equal(t, EventSummary, events[len(events)-2].Type)
	assert.Equal(t, EventStatus, events[len(events)-1].Type)
}

func TestRunner_ResultCarriesAllThreeMetrics(t *testing.T) {
	ag := &fakeAgent{turns: map[string]*agent.TurnResult{
		"q": turnWithCalls("ans", priceCall("MSFT")),
	}}
	runner := NewRunner(ag, &fakeJudge{}, nil, RunnerConfig{}, nil)

	var result *EvaluationResult
	_, err := runner.Run(context.Background(), []TestCase{simpleCase("t1", "q")}, func(ev Event) {
		if ev.Type == EventTestCaseResult {
			result = ev.Result
		}
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Len(t, result.Metrics, 3)
	names := map[MetricName]float64{}
	for _, m := range result.Metrics {
		names[m.Name] = m.Score
	}
	// Tool matched but the ticker argument did not
	assert.InDelta(t, 1.0, names[MetricToolSelection], 1e-9)
	assert.InDelta(t, 0.0, names[MetricArgumentMatch], 1e-9)
	assert.InDelta(t, 1.0, names[MetricFaithfulness], 1e-9)
	assert.InDelta(t, 2.0/3.0, result.OverallScore, 1e-9)
	assert.Equal(t, []string{"get_stock_price"}, result.ActualTools)
	assert.Equal(t, "ans", result.ActualResponse)
}
