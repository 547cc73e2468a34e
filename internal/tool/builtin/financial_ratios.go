package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"finagent/internal/marketdata"
	"finagent/internal/tool"
)

type FinancialRatiosTool struct {
	provider marketdata.Provider
}

func NewFinancialRatiosTool(provider marketdata.Provider) *FinancialRatiosTool {
	return &FinancialRatiosTool{provider: provider}
}

func (t *FinancialRatiosTool) Name() string {
	return "calculate_financial_ratios"
}

func (t *FinancialRatiosTool) DisplayName() string {
	return "Financial Ratios"
}

func (t *FinancialRatiosTool) Description() string {
	return "Calculate and get key financial ratios including P/E, PEG, P/B, ROE, ROA, profit margins, debt ratios, and dividend yield"
}

func (t *FinancialRatiosTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ticker": map[string]any{
				"type":        "string",
				"description": "Stock ticker symbol (e.g., 'AAPL' for Apple, 'MSFT' for Microsoft)",
			},
		},
		"required": []string{"ticker"},
	}
}

func (t *FinancialRatiosTool) Execute(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
	p := struct {
		Ticker string `json:"ticker"`
	}{}
	if err := json.Unmarshal(args, &p); err != nil {
		return &tool.Result{
			Success: false,
			Error:   fmt.Sprintf("invalid parameters: %v", err),
		}, nil
	}

	ticker := strings.ToUpper(strings.TrimSpace(p.Ticker))

	stats, err := t.provider.Stats(ctx, ticker)
	if err != nil {
		return failureJSON(ticker, err, "Failed to calculate financial ratios for "+ticker), nil
	}

	return successJSON(map[string]any{
		"ticker":       ticker,
		"success":      true,
		"company_name": stats.CompanyName,
		"valuation_ratios": map[string]any{
			"pe_ratio":       ratio(stats.TrailingPE),
			"forward_pe":     ratio(stats.ForwardPE),
			"peg_ratio":      ratio(stats.PEGRatio),
			"price_to_book":  ratio(stats.PriceToBook),
			"price_to_sales": ratio(stats.PriceToSales),
		},
		"profitability_ratios": map[string]any{
			"profit_margin":    ratio(stats.ProfitMargin),
			"operating_margin": ratio(stats.OperatingMargin),
			"gross_margin":     ratio(stats.GrossMargin),
			"roe":              ratio(stats.ReturnOnEquity),
			"roa":              ratio(stats.ReturnOnAssets),
		},
		"financial_health": map[string]any{
			"current_ratio":  ratio(stats.CurrentRatio),
			"quick_ratio":    ratio(stats.QuickRatio),
			"debt_to_equity": ratio(stats.DebtToEquity),
		},
		"dividend_info": map[string]any{
			"dividend_yield": ratio(stats.DividendYield),
			"payout_ratio":   ratio(stats.PayoutRatio),
		},
		"growth_metrics": map[string]any{
			"earnings_growth": ratio(stats.EarningsGrowth),
			"revenue_growth":  ratio(stats.RevenueGrowth),
		},
	})
}

// ratio renders a possibly-missing metric as a JSON value or null
func ratio(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
