package dataflows

import (
	"context"
	"fmt"
	"time"

	apperr "github.com/dyike/StockAgent/internal/errors"
	"github.com/dyike/StockAgent/internal/models"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"
)

const yahooName = "yahoo"

// YahooFinanceClient fetches quotes and daily history from Yahoo Finance.
type YahooFinanceClient struct {
	window    time.Duration
	getEquity func(symbol string) (*finance.Equity, error)
	getBars   func(symbol string, start, end time.Time) ([]models.PricePoint, error)
	now       func() time.Time
}

// NewYahooFinanceClient creates a new Yahoo Finance client
func NewYahooFinanceClient() *YahooFinanceClient {
	return &YahooFinanceClient{
		window:    30 * 24 * time.Hour,
		getEquity: equity.Get,
		getBars:   dailyCloses,
		now:       time.Now,
	}
}

func (yf *YahooFinanceClient) Name() string { return yahooName }

// Quote gets the current price, company name and one month of closes.
func (yf *YahooFinanceClient) Quote(ctx context.Context, ticker string) (snap *models.Snapshot, err error) {
	if err := ValidateSymbol(ticker); err != nil {
		return nil, err
	}
	symbol := NormalizeSymbol(ticker)

	start := time.Now()
	defer func() { timed(ctx, yahooName, "quote", start, err) }()

	eq, err := runBlocking(ctx, func() (*finance.Equity, error) {
		return yf.getEquity(symbol)
	})
	if err != nil {
		return nil, classifyTransport(yahooName, fmt.Errorf("get quote for %s: %w", symbol, err))
	}
	if eq == nil || eq.Symbol == "" {
		return nil, apperr.NewProviderError(yahooName, fmt.Errorf("no quote for %s: %w", symbol, apperr.ErrInvalidTicker))
	}

	end := yf.now()
	series, err := runBlocking(ctx, func() ([]models.PricePoint, error) {
		return yf.getBars(symbol, end.Add(-yf.window), end)
	})
	if err != nil {
		return nil, classifyTransport(yahooName, fmt.Errorf("get history for %s: %w", symbol, err))
	}

	snap = &models.Snapshot{
		Ticker:   symbol,
		Price:    decimal.NewFromFloat(eq.RegularMarketPrice),
		Currency: eq.CurrencyID,
		Exchange: eq.FullExchangeName,
		Series:   series,
		Profile: models.CompanyProfile{
			Name:      firstNonEmpty(eq.LongName, eq.ShortName),
			MarketCap: eq.MarketCap,
		},
		Source:    yahooName,
		FetchedAt: end,
	}
	if snap.Price.IsZero() && snap.HasSeries() {
		snap.Price = snap.EndClose()
	}
	return snap, nil
}

// dailyCloses reads daily bars between start and end.
func dailyCloses(symbol string, start, end time.Time) ([]models.PricePoint, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	points := make([]models.PricePoint, 0, 32)
	for iter.Next() {
		bar := iter.Bar()
		if bar.Close.IsZero() {
			continue
		}
		points = append(points, models.PricePoint{
			Date:  time.Unix(int64(bar.Timestamp), 0).UTC(),
			Close: bar.Close,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
