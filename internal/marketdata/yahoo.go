package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	yahooChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooSummaryURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"
)

// YahooProvider fetches quotes, profiles, and history from Yahoo Finance's
// public endpoints.
type YahooProvider struct {
	httpClient *http.Client
	baseChart  string
	baseQuote  string
}

type YahooOption func(*YahooProvider)

// WithHTTPClient overrides the HTTP client (timeouts, proxies, test servers)
func WithHTTPClient(c *http.Client) YahooOption {
	return func(p *YahooProvider) { p.httpClient = c }
}

// WithBaseURLs points the provider at alternate endpoints, used by tests
func WithBaseURLs(chart, quoteSummary string) YahooOption {
	return func(p *YahooProvider) {
		p.baseChart = chart
		p.baseQuote = quoteSummary
	}
}

func NewYahooProvider(opts ...YahooOption) *YahooProvider {
	p := &YahooProvider{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseChart:  yahooChartURL,
		baseQuote:  yahooSummaryURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"previousClose"`
				LongName           string  `json:"longName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (p *YahooProvider) Quote(ctx context.Context, ticker string) (*Quote, error) {
	ticker = normalizeTicker(ticker)

	var resp chartResponse
	endpoint := fmt.Sprintf("%s/%s?range=1d&interval=1d", p.baseChart, url.PathEscape(ticker))
	if err := p.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoData, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}

	result := resp.Chart.Result[0]
	quote := &Quote{
		Ticker:        ticker,
		CompanyName:   result.Meta.LongName,
		Currency:      result.Meta.Currency,
		Price:         result.Meta.RegularMarketPrice,
		PreviousClose: result.Meta.PreviousClose,
	}

	if len(result.Indicators.Quote) > 0 {
		q := result.Indicators.Quote[0]
		if n := len(q.Open); n > 0 {
			quote.Open = q.Open[n-1]
		}
		if n := len(q.High); n > 0 {
			quote.DayHigh = q.High[n-1]
		}
		if n := len(q.Low); n > 0 {
			quote.DayLow = q.Low[n-1]
		}
		if n := len(q.Volume); n > 0 {
			quote.Volume = q.Volume[n-1]
		}
	}

	return quote, nil
}

func (p *YahooProvider) History(ctx context.Context, ticker string, start time.Time) ([]Bar, error) {
	ticker = normalizeTicker(ticker)

	var resp chartResponse
	endpoint := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d",
		p.baseChart, url.PathEscape(ticker), start.Unix(), time.Now().Unix())
	if err := p.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoData, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}

	result := resp.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == 0 {
			continue
		}
		bars = append(bars, Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: closes[i],
		})
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}
	return bars, nil
}

type rawValue struct {
	Raw float64 `json:"raw"`
}

func (v *rawValue) ptr() *float64 {
	if v == nil {
		return nil
	}
	val := v.Raw
	return &val
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile *struct {
				Sector              string `json:"sector"`
				Industry            string `json:"industry"`
				Website             string `json:"website"`
				LongBusinessSummary string `json:"longBusinessSummary"`
				FullTimeEmployees   int    `json:"fullTimeEmployees"`
				City                string `json:"city"`
				State               string `json:"state"`
				Country             string `json:"country"`
				CompanyOfficers     []struct {
					Name  string `json:"name"`
					Title string `json:"title"`
					Age   int    `json:"age"`
				} `json:"companyOfficers"`
			} `json:"assetProfile"`
			Price *struct {
				LongName string `json:"longName"`
			} `json:"price"`
			SummaryDetail *struct {
				TrailingPE    *rawValue `json:"trailingPE"`
				ForwardPE     *rawValue `json:"forwardPE"`
				PriceToSales  *rawValue `json:"priceToSalesTrailing12Months"`
				DividendYield *rawValue `json:"dividendYield"`
				PayoutRatio   *rawValue `json:"payoutRatio"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics *struct {
				PEGRatio    *rawValue `json:"pegRatio"`
				PriceToBook *rawValue `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
			FinancialData *struct {
				ProfitMargins    *rawValue `json:"profitMargins"`
				OperatingMargins *rawValue `json:"operatingMargins"`
				GrossMargins     *rawValue `json:"grossMargins"`
				ReturnOnEquity   *rawValue `json:"returnOnEquity"`
				ReturnOnAssets   *rawValue `json:"returnOnAssets"`
				CurrentRatio     *rawValue `json:"currentRatio"`
				QuickRatio       *rawValue `json:"quickRatio"`
				DebtToEquity     *rawValue `json:"debtToEquity"`
				EarningsGrowth   *rawValue `json:"earningsGrowth"`
				RevenueGrowth    *rawValue `json:"revenueGrowth"`
			} `json:"financialData"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func (p *YahooProvider) Profile(ctx context.Context, ticker string) (*Profile, error) {
	ticker = normalizeTicker(ticker)

	resp, err := p.quoteSummary(ctx, ticker, "assetProfile,price")
	if err != nil {
		return nil, err
	}

	result := resp.QuoteSummary.Result[0]
	profile := &Profile{Ticker: ticker}
	if result.Price != nil {
		profile.CompanyName = result.Price.LongName
	}
	if ap := result.AssetProfile; ap != nil {
		profile.Sector = ap.Sector
		profile.Industry = ap.Industry
		profile.Website = ap.Website
		profile.Description = ap.LongBusinessSummary
		profile.Employees = ap.FullTimeEmployees
		profile.City = ap.City
		profile.State = ap.State
		profile.Country = ap.Country

		// Top 5 officers are enough for a summary answer
		for i, officer := range ap.CompanyOfficers {
			if i >= 5 {
				break
			}
			profile.Executives = append(profile.Executives, Executive{
				Name:  officer.Name,
				Title: officer.Title,
				Age:   officer.Age,
			})
		}
	}

	return profile, nil
}

func (p *YahooProvider) Stats(ctx context.Context, ticker string) (*Stats, error) {
	ticker = normalizeTicker(ticker)

	resp, err := p.quoteSummary(ctx, ticker, "summaryDetail,defaultKeyStatistics,financialData,price")
	if err != nil {
		return nil, err
	}

	result := resp.QuoteSummary.Result[0]
	stats := &Stats{Ticker: ticker}
	if result.Price != nil {
		stats.CompanyName = result.Price.LongName
	}
	if sd := result.SummaryDetail; sd != nil {
		stats.TrailingPE = sd.TrailingPE.ptr()
		stats.ForwardPE = sd.ForwardPE.ptr()
		stats.PriceToSales = sd.PriceToSales.ptr()
		stats.DividendYield = sd.DividendYield.ptr()
		stats.PayoutRatio = sd.PayoutRatio.ptr()
	}
	if ks := result.DefaultKeyStatistics; ks != nil {
		stats.PEGRatio = ks.PEGRatio.ptr()
		stats.PriceToBook = ks.PriceToBook.ptr()
	}
	if fd := result.FinancialData; fd != nil {
		stats.ProfitMargin = fd.ProfitMargins.ptr()
		stats.OperatingMargin = fd.OperatingMargins.ptr()
		stats.GrossMargin = fd.GrossMargins.ptr()
		stats.ReturnOnEquity = fd.ReturnOnEquity.ptr()
		stats.ReturnOnAssets = fd.ReturnOnAssets.ptr()
		stats.CurrentRatio = fd.CurrentRatio.ptr()
		stats.QuickRatio = fd.QuickRatio.ptr()
		stats.DebtToEquity = fd.DebtToEquity.ptr()
		stats.EarningsGrowth = fd.EarningsGrowth.ptr()
		stats.RevenueGrowth = fd.RevenueGrowth.ptr()
	}

	return stats, nil
}

func (p *YahooProvider) quoteSummary(ctx context.Context, ticker, modules string) (*quoteSummaryResponse, error) {
	var resp quoteSummaryResponse
	endpoint := fmt.Sprintf("%s/%s?modules=%s", p.baseQuote, url.PathEscape(ticker), url.QueryEscape(modules))
	if err := p.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoData, resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}
	return &resp, nil
}

func (p *YahooProvider) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "finagent/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("market data request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: not found", ErrNoData)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("market data request failed: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding market data response: %w", err)
	}
	return nil
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
