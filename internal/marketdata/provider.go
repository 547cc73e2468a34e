package marketdata

import (
	"context"
	"errors"
	"time"
)

// ErrNoData means the provider had nothing for the requested ticker/range
var ErrNoData = errors.New("no market data available")

// Quote is a point-in-time snapshot for one ticker
type Quote struct {
	Ticker        string
	CompanyName   string
	Currency      string
	Price         float64
	PreviousClose float64
	Open          float64
	DayHigh       float64
	DayLow        float64
	Volume        int64
	MarketCap     int64
}

// Executive is one listed company officer
type Executive struct {
	Name  string
	Title string
	Age   int
}

// Profile describes a company
type Profile struct {
	Ticker      string
	CompanyName string
	Sector      string
	Industry    string
	Website     string
	Description string
	Employees   int
	City        string
	State       string
	Country     string
	Executives  []Executive
}

// Stats carries the ratio inputs the financial tools report. Nil fields
// mean the upstream source had no value.
type Stats struct {
	Ticker          string
	CompanyName     string
	TrailingPE      *float64
	ForwardPE       *float64
	PEGRatio        *float64
	PriceToBook     *float64
	PriceToSales    *float64
	ProfitMargin    *float64
	OperatingMargin *float64
	GrossMargin     *float64
	ReturnOnEquity  *float64
	ReturnOnAssets  *float64
	CurrentRatio    *float64
	QuickRatio      *float64
	DebtToEquity    *float64
	DividendYield   *float64
	PayoutRatio     *float64
	EarningsGrowth  *float64
	RevenueGrowth   *float64
}

// Bar is one daily close
type Bar struct {
	Date  time.Time
	Close float64
}

// Provider abstracts market-data access so tools stay pure over their
// inputs and tests can substitute fixtures. Implementations own their
// network behavior; tools never construct providers.
type Provider interface {
	Quote(ctx context.Context, ticker string) (*Quote, error)
	Profile(ctx context.Context, ticker string) (*Profile, error)
	Stats(ctx context.Context, ticker string) (*Stats, error)
	History(ctx context.Context, ticker string, start time.Time) ([]Bar, error)
}
