// Package builtin provides the financial tools registered with every agent:
// stock prices, company profiles, financial ratios, historical returns, and
// investment projections. Data-backed tools take a marketdata.Provider;
// calculation tools are pure.
package builtin

import (
	"encoding/json"
	"fmt"
	"math"

	"finagent/internal/marketdata"
	"finagent/internal/tool"
)

// RegisterAll adds every built-in financial tool to the registry
func RegisterAll(registry *tool.Registry, provider marketdata.Provider) error {
	tools := []tool.Tool{
		NewStockPriceTool(provider),
		NewCompanyInfoTool(provider),
		NewFinancialRatiosTool(provider),
		NewStockReturnsTool(provider),
		NewCalculatorTool(),
	}
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("registering %s: %w", t.Name(), err)
		}
	}
	return nil
}

// successJSON renders a tool result payload as indented JSON
func successJSON(payload map[string]any) (*tool.Result, error) {
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return &tool.Result{
		Success: true,
		Output:  string(out),
		Data:    payload,
	}, nil
}

// failureJSON renders a data-lookup failure the model can read and react to
func failureJSON(ticker string, err error, message string) *tool.Result {
	payload := map[string]any{
		"ticker":  ticker,
		"success": false,
		"error":   err.Error(),
		"message": message,
	}
	out, jsonErr := json.MarshalIndent(payload, "", "  ")
	if jsonErr != nil {
		out = []byte(err.Error())
	}
	return &tool.Result{
		Success: false,
		Output:  string(out),
		Error:   err.Error(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
