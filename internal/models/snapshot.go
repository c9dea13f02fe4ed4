package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// Headline is a recent news item for a ticker.
type Headline struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// CompanyProfile holds descriptive metadata. Empty fields render as N/A.
type CompanyProfile struct {
	Name      string `json:"name,omitempty"`
	Sector    string `json:"sector,omitempty"`
	Industry  string `json:"industry,omitempty"`
	MarketCap int64  `json:"market_cap,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Snapshot is everything fetched for one ticker in one request. It is never
// cached between requests.
type Snapshot struct {
	Ticker    string          `json:"ticker"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency,omitempty"`
	Exchange  string          `json:"exchange,omitempty"`
	Series    []PricePoint    `json:"series"`
	Profile   CompanyProfile  `json:"profile"`
	Headlines []Headline      `json:"headlines,omitempty"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// HasSeries reports whether there is enough history to describe a trend.
func (s *Snapshot) HasSeries() bool {
	return s != nil && len(s.Series) > 0
}

// StartClose returns the first close of the series.
func (s *Snapshot) StartClose() decimal.Decimal {
	if !s.HasSeries() {
		return decimal.Zero
	}
	return s.Series[0].Close
}

// EndClose returns the last close of the series.
func (s *Snapshot) EndClose() decimal.Decimal {
	if !s.HasSeries() {
		return decimal.Zero
	}
	return s.Series[len(s.Series)-1].Close
}

// PercentChange is the move from the first to the last close, in percent.
func (s *Snapshot) PercentChange() decimal.Decimal {
	start := s.StartClose()
	if start.IsZero() {
		return decimal.Zero
	}
	return s.EndClose().Sub(start).Div(start).Mul(decimal.NewFromInt(100))
}

// Closes returns the series as float64 values for plotting.
func (s *Snapshot) Closes() []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s.Series))
	for i, p := range s.Series {
		out[i] = p.Close.InexactFloat64()
	}
	return out
}

// FormatMarketCap renders a market cap in billions, or N/A when unknown.
func FormatMarketCap(capital int64) string {
	if capital <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("$%.2fB", float64(capital)/1e9)
}

// OrNA substitutes N/A for empty strings.
func OrNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
