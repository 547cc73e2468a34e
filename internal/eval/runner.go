package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"finagent/internal/agent"
	"finagent/internal/logger"
	"finagent/internal/tool"
)

// AgentRunner is the slice of the agent engine the evaluation needs: one
// turn per call, no shared history between calls.
type AgentRunner interface {
	Run(ctx context.Context, input *agent.Input) (*agent.TurnResult, error)
}

// FaithfulnessJudge scores one answer against tool outputs and expectations
type FaithfulnessJudge interface {
	Evaluate(ctx context.Context, query string, toolOutputs, expectedContains []string, answer string) (*Verdict, error)
}

// RunnerConfig controls one evaluation run
type RunnerConfig struct {
	// PassThreshold is the overall score at or above which a case passes
	PassThreshold float64
	// CaseTimeout bounds one test case (agent turn + judge call)
	CaseTimeout time.Duration
	// Concurrency is the number of test cases evaluated at once. Test cases
	// share no state, so any level is safe; events are still emitted in
	// case order.
	Concurrency int
	// StopOnError aborts the run at the first errored case instead of
	// recording it and continuing
	StopOnError bool
}

// Runner drives the agent loop once per test case and scores each run along
// tool selection, argument match, and response faithfulness.
type Runner struct {
	agent    AgentRunner
	judge    FaithfulnessJudge
	registry *tool.Registry
	cfg      RunnerConfig
	log      *logger.Logger
}

func NewRunner(agentRunner AgentRunner, judge FaithfulnessJudge, registry *tool.Registry, cfg RunnerConfig, log *logger.Logger) *Runner {
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = 0.7
	}
	if cfg.CaseTimeout <= 0 {
		cfg.CaseTimeout = 60 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if log == nil {
		log = logger.NewLogger(io.Discard, logger.LevelError)
	}
	return &Runner{
		agent:    agentRunner,
		judge:    judge,
		registry: registry,
		cfg:      cfg,
		log:      log,
	}
}

// Run evaluates every test case and emits status / test_case_start /
// test_case_result / error events followed by one summary event. The summary
// covers the cases that completed; errored cases are counted separately.
func (r *Runner) Run(ctx context.Context, cases []TestCase, sink Sink) (*EvaluationSummary, error) {
	emit := func(ev Event) {
		if sink != nil {
			sink(ev)
		}
	}

	total := len(cases)
	emit(Event{Type: EventStatus, Message: fmt.Sprintf("Loaded %d test cases", total), Progress: 0})

	outcomes := make([]*caseOutcome, total)
	var runErr error

	if r.cfg.Concurrency == 1 {
		for i, tc := range cases {
			outcome := r.runCase(ctx, tc, i, total)
			outcomes[i] = outcome
			for _, ev := range outcome.events {
				emit(ev)
			}
			if outcome.err != nil && r.cfg.StopOnError {
				runErr = outcome.err
				break
			}
		}
	} else {
		runErr = r.runParallel(ctx, cases, outcomes, emit)
	}

	summary := r.summarize(outcomes)
	emit(Event{Type: EventSummary, Summary: summary})
	emit(Event{Type: EventStatus, Message: "Evaluation complete", Progress: 100})

	if runErr != nil {
		return summary, fmt.Errorf("evaluation stopped: %w", runErr)
	}
	return summary, nil
}

type caseOutcome struct {
	events []Event
	result *EvaluationResult
	err    error
}

// runParallel evaluates with bounded concurrency while flushing each case's
// events only after all earlier cases have flushed, preserving case order
// on the wire.
func (r *Runner) runParallel(ctx context.Context, cases []TestCase, outcomes []*caseOutcome, emit func(Event)) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		next    int
		stopErr error
		wg      sync.WaitGroup
	)
	sem := make(chan struct{}, r.cfg.Concurrency)

	for i, tc := range cases {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, tc TestCase) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := r.runCase(runCtx, tc, idx, len(cases))

			mu.Lock()
			defer mu.Unlock()
			outcomes[idx] = outcome
			if outcome.err != nil && r.cfg.StopOnError && stopErr == nil {
				stopErr = outcome.err
				cancel()
			}
			for next < len(outcomes) && outcomes[next] != nil {
				for _, ev := range outcomes[next].events {
					emit(ev)
				}
				next++
			}
		}(i, tc)
	}

	wg.Wait()
	return stopErr
}

// runCase evaluates one test case into a buffered event list so ordering
// stays deterministic under concurrency.
func (r *Runner) runCase(ctx context.Context, tc TestCase, idx, total int) *caseOutcome {
	outcome := &caseOutcome{}
	outcome.events = append(outcome.events, Event{
		Type:    EventTestCaseStart,
		TestID:  tc.TestID,
		Query:   tc.Query,
		Current: idx + 1,
		Total:   total,
	})

	caseCtx, cancel := context.WithTimeout(ctx, r.cfg.CaseTimeout)
	defer cancel()

	result, err := r.evaluateCase(caseCtx, tc)
	if err != nil {
		r.log.Error("Test case %s failed: %v", tc.TestID, err)
		outcome.err = fmt.Errorf("test case %s: %w", tc.TestID, err)
		outcome.events = append(outcome.events, Event{
			Type:     EventError,
			TestID:   tc.TestID,
			Message:  err.Error(),
			Continue: !r.cfg.StopOnError,
		})
		return outcome
	}

	outcome.result = result
	outcome.events = append(outcome.events,
		Event{Type: EventTestCaseResult, TestID: tc.TestID, Result: result},
		Event{
			Type:     EventStatus,
			Message:  fmt.Sprintf("Completed %d/%d tests", idx+1, total),
			Progress: (idx + 1) * 100 / total,
		},
	)
	return outcome
}

// evaluateCase runs one fresh agent turn and scores it
func (r *Runner) evaluateCase(ctx context.Context, tc TestCase) (*EvaluationResult, error) {
	r.log.Info("Evaluating test case %s", tc.TestID)

	turn, err := r.agent.Run(ctx, &agent.Input{Query: tc.Query})
	if err != nil {
		return nil, fmt.Errorf("agent run: %w", err)
	}
	if turn.Termination == agent.TerminationCancelled {
		return nil, fmt.Errorf("agent run: %w", context.DeadlineExceeded)
	}

	actualTools := make([]string, 0, len(turn.ToolCalls))
	actualCalls := make([]ActualCall, 0, len(turn.ToolCalls))
	toolOutputs := make([]string, 0, len(turn.ToolCalls))

	for _, cr := range turn.ToolCalls {
		actualTools = append(actualTools, cr.ToolName)

		var args map[string]any
		if len(cr.Args) > 0 {
			// Undecodable arguments still count the call; they just can't
			// match any expected fields.
			_ = json.Unmarshal(cr.Args, &args)
		}
		actualCalls = append(actualCalls, ActualCall{Tool: cr.ToolName, Args: args})

		display := cr.ToolName
		if r.registry != nil {
			display = r.registry.DisplayName(cr.ToolName)
		}
		output := cr.Result.Output
		if !cr.Result.Success {
			output = "error: " + cr.Result.Error
		}
		toolOutputs = append(toolOutputs, fmt.Sprintf("%s: %s", display, output))
	}

	toolSelection := ToolSelectionScore(tc.ExpectedTools, actualTools)
	argumentMatch := ArgumentMatchScore(tc.ExpectedTools, tc.ExpectedArgs, actualCalls)

	verdict, err := r.judge.Evaluate(ctx, tc.Query, toolOutputs, tc.ExpectedContains, turn.Answer)
	if err != nil {
		return nil, err
	}

	metrics := []MetricScore{
		{Name: MetricToolSelection, Score: toolSelection},
		{Name: MetricArgumentMatch, Score: argumentMatch},
		{Name: MetricFaithfulness, Score: verdict.Score, Details: verdict.Explanation},
	}

	overall := clamp01((toolSelection + argumentMatch + verdict.Score) / 3)

	return &EvaluationResult{
		TestID:         tc.TestID,
		Query:          tc.Query,
		ExpectedTools:  tc.ExpectedTools,
		ActualTools:    actualTools,
		ActualResponse: turn.Answer,
		Metrics:        metrics,
		OverallScore:   overall,
		Passed:         overall >= r.cfg.PassThreshold,
	}, nil
}

func (r *Runner) summarize(outcomes []*caseOutcome) *EvaluationSummary {
	summary := &EvaluationSummary{}

	var toolSum, argSum, faithSum, overallSum float64
	completed := 0

	for _, outcome := range outcomes {
		if outcome == nil {
			continue
		}
		summary.TotalTests++
		if outcome.result == nil {
			summary.Errored++
			continue
		}

		completed++
		res := outcome.result
		if res.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
		for _, m := range res.Metrics {
			switch m.Name {
			case MetricToolSelection:
				toolSum += m.Score
			case MetricArgumentMatch:
				argSum += m.Score
			case MetricFaithfulness:
				faithSum += m.Score
			}
		}
		overallSum += res.OverallScore
	}

	if completed > 0 {
		n := float64(completed)
		summary.AverageToolSelection = toolSum / n
		summary.AverageArgumentMatch = argSum / n
		summary.AverageFaithfulness = faithSum / n
		summary.OverallAverage = overallSum / n
	}

	return summary
}
