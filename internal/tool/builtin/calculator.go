package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"finagent/internal/tool"
)

// CalculatorTool projects investment growth with compound interest and
// optional monthly contributions. Pure math, no external data.
type CalculatorTool struct{}

func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

func (t *CalculatorTool) Name() string {
	return "calculate_investment_returns"
}

func (t *CalculatorTool) DisplayName() string {
	return "Investment Calculator"
}

func (t *CalculatorTool) Description() string {
	return "Calculate investment returns, compound interest, and future value of investments given principal, rate, and time period"
}

func (t *CalculatorTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"principal": map[string]any{
				"type":        "number",
				"description": "Initial investment amount in dollars",
			},
			"annual_rate": map[string]any{
				"type":        "number",
				"description": "Annual interest rate as a percentage (e.g., 7 for 7% annual return)",
			},
			"years": map[string]any{
				"type":        "number",
				"description": "Number of years to invest",
			},
			"monthly_contribution": map[string]any{
				"type":        "number",
				"description": "Monthly contribution amount in dollars (optional, default: 0)",
				"default":     0.0,
			},
		},
		"required": []string{"principal", "annual_rate", "years"},
	}
}

func (t *CalculatorTool) Execute(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
	p := struct {
		Principal           float64 `json:"principal"`
		AnnualRate          float64 `json:"annual_rate"`
		Years               float64 `json:"years"`
		MonthlyContribution float64 `json:"monthly_contribution"`
	}{}
	if err := json.Unmarshal(args, &p); err != nil {
		return &tool.Result{
			Success: false,
			Error:   fmt.Sprintf("invalid parameters: %v", err),
		}, nil
	}

	if p.Principal < 0 || p.Years <= 0 {
		return &tool.Result{
			Success: false,
			Error:   "principal must be non-negative and years must be positive",
		}, nil
	}

	rateDecimal := p.AnnualRate / 100
	monthlyRate := rateDecimal / 12
	months := p.Years * 12

	var futureValue, totalContributions float64
	if p.MonthlyContribution > 0 {
		fvPrincipal := p.Principal * math.Pow(1+rateDecimal, p.Years)

		// Future value of the contribution stream (ordinary annuity)
		var fvContributions float64
		if monthlyRate > 0 {
			fvContributions = p.MonthlyContribution * (math.Pow(1+monthlyRate, months) - 1) / monthlyRate
		} else {
			fvContributions = p.MonthlyContribution * months
		}

		futureValue = fvPrincipal + fvContributions
		totalContributions = p.Principal + p.MonthlyContribution*months
	} else {
		futureValue = p.Principal * math.Pow(1+rateDecimal, p.Years)
		totalContributions = p.Principal
	}

	totalReturns := futureValue - totalContributions
	roiPercent := 0.0
	if totalContributions > 0 {
		roiPercent = totalReturns / totalContributions * 100
	}

	return successJSON(map[string]any{
		"success": true,
		"inputs": map[string]any{
			"principal":            p.Principal,
			"annual_rate_percent":  p.AnnualRate,
			"years":                p.Years,
			"monthly_contribution": p.MonthlyContribution,
		},
		"results": map[string]any{
			"future_value":        round2(futureValue),
			"total_contributions": round2(totalContributions),
			"total_returns":       round2(totalReturns),
			"roi_percent":         round2(roiPercent),
		},
		"breakdown": map[string]any{
			"initial_investment":          p.Principal,
			"total_monthly_contributions": round2(p.MonthlyContribution * months),
			"interest_earned":             round2(futureValue - totalContributions),
		},
	})
}
