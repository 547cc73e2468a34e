package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *YahooProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahooProvider(
		WithHTTPClient(srv.Client()),
		WithBaseURLs(srv.URL+"/chart", srv.URL+"/summary"),
	)
}

const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {
        "symbol": "AAPL",
        "currency": "USD",
        "regularMarketPrice": 230.12,
        "previousClose": 228.50,
        "longName": "Apple Inc."
      },
      "timestamp": [1724803200, 1724889600],
      "indicators": {
        "quote": [{
          "open": [228.9, 229.4],
          "high": [231.0, 231.5],
          "low": [227.8, 228.9],
          "close": [229.8, 230.12],
          "volume": [51000000, 48000000]
        }]
      }
    }],
    "error": null
  }
}`

func TestYahooProvider_Quote(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/chart/AAPL") {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("User-Agent"); !strings.HasPrefix(got, "finagent/") {
			t.Errorf("Unexpected User-Agent: %s", got)
		}
		fmt.Fprint(w, chartFixture)
	})

	quote, err := provider.Quote(context.Background(), " aapl ")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}

	if quote.Ticker != "AAPL" {
		t.Errorf("Expected normalized ticker AAPL, got %s", quote.Ticker)
	}
	if quote.CompanyName != "Apple Inc." {
		t.Errorf("Expected Apple Inc., got %s", quote.CompanyName)
	}
	if quote.Price != 230.12 {
		t.Errorf("Expected price 230.12, got %v", quote.Price)
	}
	if quote.PreviousClose != 228.50 {
		t.Errorf("Expected previous close 228.50, got %v", quote.PreviousClose)
	}
	// Intraday fields come from the last bar
	if quote.DayHigh != 231.5 || quote.DayLow != 228.9 {
		t.Errorf("Expected high/low 231.5/228.9, got %v/%v", quote.DayHigh, quote.DayLow)
	}
	if quote.Volume != 48000000 {
		t.Errorf("Expected volume 48000000, got %v", quote.Volume)
	}
}

func TestYahooProvider_History(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("period1") == "" {
			t.Error("History request should carry period1")
		}
		fmt.Fprint(w, chartFixture)
	})

	bars, err := provider.History(context.Background(), "AAPL", time.Now().AddDate(-1, 0, 0))
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}

	if len(bars) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 229.8 || bars[1].Close != 230.12 {
		t.Errorf("Unexpected closes: %v, %v", bars[0].Close, bars[1].Close)
	}
	if !bars[0].Date.Before(bars[1].Date) {
		t.Error("Bars should be in chronological order")
	}
}

func TestYahooProvider_HistorySkipsZeroCloses(t *testing.T) {
	fixture := `{"chart": {"result": [{
		"meta": {"symbol": "X"},
		"timestamp": [1, 2, 3],
		"indicators": {"quote": [{"close": [10.0, 0, 12.0]}]}
	}], "error": null}}`

	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fixture)
	})

	bars, err := provider.History(context.Background(), "X", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(bars) != 2 {
		t.Errorf("Zero closes should be skipped, got %d bars", len(bars))
	}
}

func TestYahooProvider_UnknownTicker(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`)
	})

	_, err := provider.Quote(context.Background(), "NOPE")
	if err == nil {
		t.Fatal("Expected error for unknown ticker")
	}
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData, got: %v", err)
	}
}

func TestYahooProvider_HTTPStatus(t *testing.T) {
	t.Run("404 maps to ErrNoData", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := provider.Quote(context.Background(), "GONE")
		if !errors.Is(err, ErrNoData) {
			t.Errorf("Expected ErrNoData for 404, got: %v", err)
		}
	})

	t.Run("server error is not ErrNoData", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := provider.Quote(context.Background(), "AAPL")
		if err == nil {
			t.Fatal("Expected error for 500")
		}
		if errors.Is(err, ErrNoData) {
			t.Error("A transient server error must not look like missing data")
		}
	})
}

func TestYahooProvider_Stats(t *testing.T) {
	fixture := `{"quoteSummary": {"result": [{
		"price": {"longName": "Apple Inc."},
		"summaryDetail": {
			"trailingPE": {"raw": 31.2},
			"dividendYield": {"raw": 0.0044}
		},
		"defaultKeyStatistics": {"priceToBook": {"raw": 48.1}},
		"financialData": {
			"profitMargins": {"raw": 0.26},
			"debtToEquity": {"raw": 176.3}
		}
	}], "error": null}}`

	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/summary/AAPL") {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if modules := r.URL.Query().Get("modules"); !strings.Contains(modules, "financialData") {
			t.Errorf("Stats should request financialData, got modules=%s", modules)
		}
		fmt.Fprint(w, fixture)
	})

	stats, err := provider.Stats(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.TrailingPE == nil || *stats.TrailingPE != 31.2 {
		t.Errorf("Expected trailing PE 31.2, got %v", stats.TrailingPE)
	}
	if stats.ProfitMargin == nil || *stats.ProfitMargin != 0.26 {
		t.Errorf("Expected profit margin 0.26, got %v", stats.ProfitMargin)
	}
	// Metrics absent from the response stay nil rather than zero
	if stats.ForwardPE != nil {
		t.Errorf("Missing metric should be nil, got %v", *stats.ForwardPE)
	}
	if stats.PEGRatio != nil {
		t.Errorf("Missing metric should be nil, got %v", *stats.PEGRatio)
	}
}

func TestYahooProvider_Profile(t *testing.T) {
	fixture := `{"quoteSummary": {"result": [{
		"price": {"longName": "Apple Inc."},
		"assetProfile": {
			"sector": "Technology",
			"industry": "Consumer Electronics",
			"website": "https://www.apple.com",
			"longBusinessSummary": "Apple designs consumer electronics.",
			"fullTimeEmployees": 161000,
			"city": "Cupertino",
			"state": "CA",
			"country": "United States",
			"companyOfficers": [
				{"name": "Timothy Cook", "title": "CEO", "age": 63},
				{"name": "Luca Maestri", "title": "CFO", "age": 60},
				{"name": "O3", "title": "t"}, {"name": "O4", "title": "t"},
				{"name": "O5", "title": "t"}, {"name": "O6", "title": "t"}
			]
		}
	}], "error": null}}`

	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fixture)
	})

	profile, err := provider.Profile(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}

	if profile.Sector != "Technology" {
		t.Errorf("Expected Technology, got %s", profile.Sector)
	}
	if profile.Employees != 161000 {
		t.Errorf("Expected 161000 employees, got %d", profile.Employees)
	}
	if len(profile.Executives) != 5 {
		t.Errorf("Executives should be capped at 5, got %d", len(profile.Executives))
	}
	if profile.Executives[0].Name != "Timothy Cook" {
		t.Errorf("Expected Timothy Cook first, got %s", profile.Executives[0].Name)
	}
}
