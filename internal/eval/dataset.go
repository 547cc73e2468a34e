package eval

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxTestCases caps one evaluation dataset
const MaxTestCases = 100

var requiredColumns = []string{
	"test_id",
	"query",
	"expected_tool",
	"expected_args",
	"expected_response_contains",
}

// LoadCSVFile reads an evaluation dataset from disk
func LoadCSVFile(path string) ([]TestCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV parses test cases from CSV with the columns test_id, query,
// expected_tool, expected_args, expected_response_contains. expected_tool
// may list several tools separated by ';' (order-significant);
// expected_args is a JSON object, or a JSON array with one object per
// expected tool; expected_response_contains is a ';'-separated keyword list.
func LoadCSV(r io.Reader) ([]TestCase, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV file is empty or has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	var cases []TestCase
	seenIDs := make(map[string]bool)
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string {
			idx := columns[name]
			if idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		tc := TestCase{
			TestID: field("test_id"),
			Query:  field("query"),
		}

		if tc.TestID == "" {
			return nil, fmt.Errorf("line %d: test_id is required", line)
		}
		if seenIDs[tc.TestID] {
			return nil, fmt.Errorf("line %d: duplicate test_id %q", line, tc.TestID)
		}
		seenIDs[tc.TestID] = true

		if tc.Query == "" {
			return nil, fmt.Errorf("line %d: query is required", line)
		}

		tc.ExpectedTools = splitList(field("expected_tool"))
		if len(tc.ExpectedTools) == 0 {
			return nil, fmt.Errorf("line %d: expected_tool is required", line)
		}

		args, err := parseExpectedArgs(field("expected_args"), len(tc.ExpectedTools))
		if err != nil {
			return nil, fmt.Errorf("line %d: expected_args: %w", line, err)
		}
		tc.ExpectedArgs = args

		tc.ExpectedContains = splitList(field("expected_response_contains"))

		cases = append(cases, tc)
	}

	if len(cases) == 0 {
		return nil, fmt.Errorf("no test cases found")
	}
	if len(cases) > MaxTestCases {
		return nil, fmt.Errorf("too many test cases: maximum is %d, got %d", MaxTestCases, len(cases))
	}

	return cases, nil
}

// parseExpectedArgs accepts a single JSON object (applied to the first
// expected tool) or a JSON array with one object per expected tool.
func parseExpectedArgs(raw string, expectedTools int) ([]map[string]any, error) {
	if raw == "" {
		return make([]map[string]any, expectedTools), nil
	}

	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var list []map[string]any
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		if len(list) != expectedTools {
			return nil, fmt.Errorf("%d argument sets for %d expected tools", len(list), expectedTools)
		}
		return list, nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	args := make([]map[string]any, expectedTools)
	args[0] = obj
	return args, nil
}

// splitList splits a ';'-separated field, dropping empty entries
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
