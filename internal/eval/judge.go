package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"finagent/internal/llm"
)

// ErrJudgeTransport means the judge model could not be reached. It is fatal
// to the one test case being judged, never to the whole evaluation run.
var ErrJudgeTransport = errors.New("judge transport error")

// Judge scores whether a final answer is grounded in the tool outputs and
// contains the expected content. It is a second, constrained model call at
// temperature zero so repeated runs over fixed inputs score the same.
type Judge struct {
	client    llm.Client
	maxTokens int
}

// Verdict is the judge's output for one answer
type Verdict struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

func NewJudge(client llm.Client) *Judge {
	return &Judge{
		client:    client,
		maxTokens: 1024,
	}
}

var judgePromptTmpl = template.Must(template.New("faithfulness_judge").Parse(
	`You are a strict evaluator of AI-generated financial answers.

User query:
{{.Query}}

Tool outputs available to the agent:
{{- range .ToolOutputs}}
- {{.}}
{{- end}}

Expected content (keywords or phrases the answer should contain):
{{- range .ExpectedContains}}
- {{.}}
{{- end}}

Agent's final answer:
{{.Answer}}

Score the answer's faithfulness from 0.0 to 1.0:
- 1.0: every claim and figure is supported by the tool outputs, and the expected content is present.
- 0.5: mostly grounded, but some expected content is missing or some claims lack support.
- 0.0: the answer contradicts or fabricates data, or ignores the tool outputs entirely.

Respond with only a JSON object: {"score": <float>, "explanation": "<one or two sentences>"}`))

type judgePromptData struct {
	Query            string
	ToolOutputs      []string
	ExpectedContains []string
	Answer           string
}

// Evaluate returns the faithfulness score for one answer. A transport
// failure is returned as ErrJudgeTransport; a malformed judge response is
// not an error, it scores 0 with the parse problem in the explanation.
func (j *Judge) Evaluate(ctx context.Context, query string, toolOutputs, expectedContains []string, answer string) (*Verdict, error) {
	var prompt strings.Builder
	if err := judgePromptTmpl.Execute(&prompt, judgePromptData{
		Query:            query,
		ToolOutputs:      toolOutputs,
		ExpectedContains: expectedContains,
		Answer:           answer,
	}); err != nil {
		return nil, fmt.Errorf("rendering judge prompt: %w", err)
	}

	resp, err := j.client.Chat(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt.String()},
		},
		Temperature: 0,
		MaxTokens:   j.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJudgeTransport, err)
	}

	var verdict Verdict
	if err := extractJSON(resp.Message.Content, &verdict); err != nil {
		return &Verdict{
			Score:       0,
			Explanation: fmt.Sprintf("could not parse judge response: %v", err),
		}, nil
	}

	verdict.Score = clamp01(verdict.Score)
	if verdict.Explanation == "" {
		verdict.Explanation = "No explanation provided"
	}
	return &verdict, nil
}

var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSON unmarshals a JSON object from model output, tolerating
// markdown code fences and surrounding prose.
func extractJSON(content string, v any) error {
	s := strings.TrimSpace(content)
	if s == "" {
		return fmt.Errorf("empty response")
	}

	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	if m := jsonFenceRe.FindStringSubmatch(s); m != nil {
		if err := json.Unmarshal([]byte(m[1]), v); err == nil {
			return nil
		}
	}

	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		if err := json.Unmarshal([]byte(s[i:j+1]), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no JSON object found in response")
}
