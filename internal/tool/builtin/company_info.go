package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"finagent/internal/marketdata"
	"finagent/internal/tool"
)

type CompanyInfoTool struct {
	provider marketdata.Provider
}

func NewCompanyInfoTool(provider marketdata.Provider) *CompanyInfoTool {
	return &CompanyInfoTool{provider: provider}
}

func (t *CompanyInfoTool) Name() string {
	return "get_company_info"
}

func (t *CompanyInfoTool) DisplayName() string {
	return "Company Insights"
}

func (t *CompanyInfoTool) Description() string {
	return "Get detailed company information including sector, industry, employees, description, and key executives for a given ticker symbol"
}

func (t *CompanyInfoTool) Parameters() map[string]any {
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

func (t *CompanyInfoTool) Execute(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
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

	profile, err := t.provider.Profile(ctx, ticker)
	if err != nil {
		return failureJSON(ticker, err, "Failed to get company info for "+ticker), nil
	}

	executives := make([]map[string]any, 0, len(profile.Executives))
	for _, exec := range profile.Executives {
		executives = append(executives, map[string]any{
			"name":  exec.Name,
			"title": exec.Title,
			"age":   exec.Age,
		})
	}

	return successJSON(map[string]any{
		"ticker":       ticker,
		"success":      true,
		"company_name": profile.CompanyName,
		"sector":       profile.Sector,
		"industry":     profile.Industry,
		"website":      profile.Website,
		"description":  profile.Description,
		"employees":    profile.Employees,
		"headquarters": map[string]any{
			"city":    profile.City,
			"state":   profile.State,
			"country": profile.Country,
		},
		"key_executives": executives,
	})
}
