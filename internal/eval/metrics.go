package eval

import (
	"math"
	"strings"
)

// floatEpsilon is the tolerance for numeric argument comparison
const floatEpsilon = 1e-6

// ActualCall is one tool call observed during an agent turn, with its
// arguments decoded for comparison.
type ActualCall struct {
	Tool string
	Args map[string]any
}

// ToolSelectionScore computes |E ∩ A| / |E| over multisets of tool names:
// an expected tool counts once per expectation, so a case expecting the same
// tool twice needs two actual calls for full credit.
func ToolSelectionScore(expected, actual []string) float64 {
	if len(expected) == 0 {
		return 1.0
	}

	remaining := make(map[string]int, len(actual))
	for _, name := range actual {
		remaining[name]++
	}

	matched := 0
	for _, name := range expected {
		if remaining[name] > 0 {
			remaining[name]--
			matched++
		}
	}

	return clamp01(float64(matched) / float64(len(expected)))
}

// ArgumentMatchScore pairs each expected tool, in expectation order, with
// the first unconsumed actual call of the same name, then averages the
// per-pair field-match ratios. An expected tool that was never called
// contributes 0 for its pair. Pure function of its inputs.
func ArgumentMatchScore(expectedTools []string, expectedArgs []map[string]any, calls []ActualCall) float64 {
	if len(expectedTools) == 0 {
		return 1.0
	}

	consumed := make([]bool, len(calls))
	total := 0.0

	for i, name := range expectedTools {
		var args map[string]any
		if i < len(expectedArgs) {
			args = expectedArgs[i]
		}

		paired := false
		for j, call := range calls {
			if consumed[j] || call.Tool != name {
				continue
			}
			consumed[j] = true
			total += fieldMatchRatio(args, call.Args)
			paired = true
			break
		}
		if !paired {
			// no call to score against; pair contributes 0
			continue
		}
	}

	return clamp01(total / float64(len(expectedTools)))
}

// fieldMatchRatio is the fraction of expected fields present in the actual
// arguments with a matching normalized value. Extra actual fields never
// reduce the score.
func fieldMatchRatio(expected, actual map[string]any) float64 {
	if len(expected) == 0 {
		return 1.0
	}
	if len(actual) == 0 {
		return 0.0
	}

	matching := 0
	for key, want := range expected {
		got, present := actual[key]
		if !present {
			continue
		}
		if valuesMatch(want, got) {
			matching++
		}
	}

	return float64(matching) / float64(len(expected))
}

// valuesMatch compares two values after normalization: strings
// case-insensitively, numbers within epsilon, maps recursively, lists
// element-wise in order.
func valuesMatch(expected, actual any) bool {
	want := normalizeValue(expected)
	got := normalizeValue(actual)

	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return false
		}
		for key, wv := range w {
			gv, present := g[key]
			if !present || !valuesMatch(wv, gv) {
				return false
			}
		}
		return true

	case []any:
		g, ok := got.([]any)
		if !ok || len(w) != len(g) {
			return false
		}
		for i := range w {
			if !valuesMatch(w[i], g[i]) {
				return false
			}
		}
		return true

	case float64:
		g, ok := got.(float64)
		return ok && math.Abs(w-g) < floatEpsilon
	}

	return want == got
}

// normalizeValue lowercases and trims strings and widens all numeric types
// to float64 so that JSON-decoded and literal values compare equal.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(t))
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	}
	return v
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
