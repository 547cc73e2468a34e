package eval

// TestCase is one labeled example: a query, the tool calls the agent is
// expected to make (order-significant, one argument set per expected tool),
// and keywords the final answer should contain. Read-only once loaded.
type TestCase struct {
	TestID           string
	Query            string
	ExpectedTools    []string
	ExpectedArgs     []map[string]any
	ExpectedContains []string
}

type MetricName string

const (
	MetricToolSelection MetricName = "tool_selection"
	MetricArgumentMatch MetricName = "argument_match"
	MetricFaithfulness  MetricName = "faithfulness"
)

// MetricScore is one scored dimension of a test case
type MetricScore struct {
	Name    MetricName `json:"metric_name"`
	Score   float64    `json:"score"`
	Details string     `json:"details,omitempty"`
}

// EvaluationResult is produced once per test case. OverallScore is always
// the unweighted mean of the three metrics, clamped to [0,1].
type EvaluationResult struct {
	TestID         string        `json:"test_id"`
	Query          string        `json:"query"`
	ExpectedTools  []string      `json:"expected_tools"`
	ActualTools    []string      `json:"actual_tools"`
	ActualResponse string        `json:"actual_response"`
	Metrics        []MetricScore `json:"metrics"`
	OverallScore   float64       `json:"overall_score"`
	Passed         bool          `json:"passed"`
}

// EvaluationSummary aggregates a whole run. Averages cover completed cases
// only; errored cases are counted separately and never skew the averages.
type EvaluationSummary struct {
	TotalTests           int     `json:"total_tests"`
	Passed               int     `json:"passed"`
	Failed               int     `json:"failed"`
	Errored              int     `json:"errored"`
	AverageToolSelection float64 `json:"average_tool_selection"`
	AverageArgumentMatch float64 `json:"average_argument_match"`
	AverageFaithfulness  float64 `json:"average_faithfulness"`
	OverallAverage       float64 `json:"overall_average"`
}

// EventType identifies one kind of evaluation stream event
type EventType string

const (
	EventStatus         EventType = "status"
	EventTestCaseStart  EventType = "test_case_start"
	EventTestCaseResult EventType = "test_case_result"
	EventSummary        EventType = "summary"
	EventError          EventType = "error"
)

// Event is one flat record of the evaluation run's event stream
type Event struct {
	Type     EventType          `json:"type"`
	Message  string             `json:"message,omitempty"`
	Progress int                `json:"progress,omitempty"`
	TestID   string             `json:"test_id,omitempty"`
	Query    string             `json:"query,omitempty"`
	Current  int                `json:"current,omitempty"`
	Total    int                `json:"total,omitempty"`
	Result   *EvaluationResult  `json:"result,omitempty"`
	Summary  *EvaluationSummary `json:"summary,omitempty"`
	Continue bool               `json:"continue,omitempty"`
}

// Sink consumes evaluation events in emission order; nil disables streaming
type Sink func(Event)
