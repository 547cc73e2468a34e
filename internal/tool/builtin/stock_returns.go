package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"finagent/internal/marketdata"
	"finagent/internal/tool"
)

type StockReturnsTool struct {
	provider marketdata.Provider
	// now is stubbed in tests for stable date math
	now func() time.Time
}

func NewStockReturnsTool(provider marketdata.Provider) *StockReturnsTool {
	return &StockReturnsTool{
		provider: provider,
		now:      time.Now,
	}
}

func (t *StockReturnsTool) Name() string {
	return "calculate_stock_returns"
}

func (t *StockReturnsTool) DisplayName() string {
	return "Stock Returns Calculator"
}

func (t *StockReturnsTool) Description() string {
	return "Calculate what a historical stock investment would be worth today, including total returns and annualized returns"
}

func (t *StockReturnsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ticker": map[string]any{
				"type":        "string",
				"description": "Stock ticker symbol (e.g., 'AAPL', 'MSFT')",
			},
			"investment_amount": map[string]any{
				"type":        "number",
				"description": "Initial investment amount in dollars",
			},
			"years_ago": map[string]any{
				"type":        "number",
				"description": "Number of years ago the investment was made (e.g., 3 for 3 years ago)",
			},
			"start_date": map[string]any{
				"type":        "string",
				"description": "Specific start date in YYYY-MM-DD format (alternative to years_ago)",
			},
		},
		"required": []string{"ticker", "investment_amount"},
	}
}

func (t *StockReturnsTool) Execute(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
	p := struct {
		Ticker           string   `json:"ticker"`
		InvestmentAmount float64  `json:"investment_amount"`
		YearsAgo         *float64 `json:"years_ago"`
		StartDate        string   `json:"start_date"`
	}{}
	if err := json.Unmarshal(args, &p); err != nil {
		return &tool.Result{
			Success: false,
			Error:   fmt.Sprintf("invalid parameters: %v", err),
		}, nil
	}

	ticker := strings.ToUpper(strings.TrimSpace(p.Ticker))

	var start time.Time
	switch {
	case p.YearsAgo != nil:
		start = t.now().AddDate(0, 0, -int(*p.YearsAgo*365.25))
	case p.StartDate != "":
		parsed, err := time.Parse("2006-01-02", p.StartDate)
		if err != nil {
			return failureJSON(ticker, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", p.StartDate),
				"Failed to calculate returns for "+ticker), nil
		}
		start = parsed
	default:
		return failureJSON(ticker, fmt.Errorf("must provide either 'years_ago' or 'start_date'"),
			"Failed to calculate returns for "+ticker), nil
	}

	if p.InvestmentAmount <= 0 {
		return failureJSON(ticker, fmt.Errorf("investment_amount must be positive"),
			"Failed to calculate returns for "+ticker), nil
	}

	bars, err := t.provider.History(ctx, ticker, start)
	if err != nil {
		return failureJSON(ticker, err, "Failed to calculate returns for "+ticker), nil
	}
	if len(bars) == 0 {
		return failureJSON(ticker, marketdata.ErrNoData,
			"Failed to calculate returns for "+ticker), nil
	}

	startBar := bars[0]
	endBar := bars[len(bars)-1]
	if startBar.Close <= 0 {
		return failureJSON(ticker, fmt.Errorf("no usable price data at start date"),
			"Failed to calculate returns for "+ticker), nil
	}

	shares := p.InvestmentAmount / startBar.Close
	currentValue := shares * endBar.Close
	totalReturn := currentValue - p.InvestmentAmount
	totalReturnPct := totalReturn / p.InvestmentAmount * 100

	years := endBar.Date.Sub(startBar.Date).Hours() / 24 / 365.25
	annualizedPct := 0.0
	if years > 0 {
		annualizedPct = (math.Pow(currentValue/p.InvestmentAmount, 1/years) - 1) * 100
	}

	return successJSON(map[string]any{
		"ticker":  ticker,
		"success": true,
		"investment": map[string]any{
			"amount":      p.InvestmentAmount,
			"start_date":  startBar.Date.Format("2006-01-02"),
			"start_price": round2(startBar.Close),
			"shares":      round2(shares),
		},
		"current": map[string]any{
			"date":  endBar.Date.Format("2006-01-02"),
			"price": round2(endBar.Close),
			"value": round2(currentValue),
		},
		"returns": map[string]any{
			"total_return":         round2(totalReturn),
			"total_return_percent": round2(totalReturnPct),
			"annualized_percent":   round2(annualizedPct),
			"holding_period_years": round2(years),
		},
	})
}
