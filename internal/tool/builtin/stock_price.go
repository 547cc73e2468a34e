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

// periodDays maps the supported history periods to day counts
var periodDays = map[string]int{
	"1d":  1,
	"5d":  5,
	"1mo": 30,
	"3mo": 91,
	"6mo": 182,
	"1y":  365,
	"2y":  730,
}

type StockPriceTool struct {
	provider marketdata.Provider
}

func NewStockPriceTool(provider marketdata.Provider) *StockPriceTool {
	return &StockPriceTool{provider: provider}
}

func (t *StockPriceTool) Name() string {
	return "get_stock_price"
}

func (t *StockPriceTool) DisplayName() string {
	return "Stock Price Lookup"
}

func (t *StockPriceTool) Description() string {
	return "Get current stock price, historical prices, and basic stock information for a given ticker symbol"
}

func (t *StockPriceTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ticker": map[string]any{
				"type":        "string",
				"description": "Stock ticker symbol (e.g., 'AAPL' for Apple, 'MSFT' for Microsoft)",
			},
			"period": map[string]any{
				"type":        "string",
				"description": "Time period for historical data",
				"enum":        []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y"},
				"default":     "1d",
			},
			"info": map[string]any{
				"type":        "boolean",
				"description": "Whether to include detailed stock information",
				"default":     true,
			},
		},
		"required": []string{"ticker"},
	}
}

func (t *StockPriceTool) Execute(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
	p := struct {
		Ticker string `json:"ticker"`
		Period string `json:"period"`
		Info   *bool  `json:"info"`
	}{}
	if err := json.Unmarshal(args, &p); err != nil {
		return &tool.Result{
			Success: false,
			Error:   fmt.Sprintf("invalid parameters: %v", err),
		}, nil
	}

	ticker := strings.ToUpper(strings.TrimSpace(p.Ticker))
	includeInfo := p.Info == nil || *p.Info

	quote, err := t.provider.Quote(ctx, ticker)
	if err != nil {
		return failureJSON(ticker, err, "Failed to get stock price for "+ticker), nil
	}

	result := map[string]any{
		"ticker":  ticker,
		"success": true,
	}

	if includeInfo {
		result["current_price"] = quote.Price
		result["currency"] = quote.Currency
		result["company_name"] = quote.CompanyName
		result["previous_close"] = quote.PreviousClose
		result["open"] = quote.Open
		result["day_high"] = quote.DayHigh
		result["day_low"] = quote.DayLow
		result["volume"] = quote.Volume
		if quote.MarketCap > 0 {
			result["market_cap"] = quote.MarketCap
		}

		if quote.Price > 0 && quote.PreviousClose > 0 {
			change := quote.Price - quote.PreviousClose
			result["change"] = round2(change)
			result["change_percent"] = round2(change / quote.PreviousClose * 100)
		}
	}

	if days, ok := periodDays[p.Period]; ok && p.Period != "1d" {
		start := time.Now().AddDate(0, 0, -days)
		bars, err := t.provider.History(ctx, ticker, start)
		if err == nil && len(bars) > 0 {
			high, low, sum := bars[0].Close, bars[0].Close, 0.0
			for _, bar := range bars {
				high = math.Max(high, bar.Close)
				low = math.Min(low, bar.Close)
				sum += bar.Close
			}
			result["historical_data"] = map[string]any{
				"period":     p.Period,
				"start_date": bars[0].Date.Format("2006-01-02"),
				"end_date":   bars[len(bars)-1].Date.Format("2006-01-02"),
				"high":       round2(high),
				"low":        round2(low),
				"average":    round2(sum / float64(len(bars))),
			}
		}
	}

	return successJSON(result)
}
