package dataflows

import (
	"context"
	"fmt"
	"sync"

	"github.com/dyike/StockAgent/config"
	apperr "github.com/dyike/StockAgent/internal/errors"
	"github.com/dyike/StockAgent/internal/logging"
	"github.com/dyike/StockAgent/internal/models"
)

const defaultHeadlineLimit = 5

// DataFlowInterface combines a quote source with optional profile and
// headline sources into one Provider.
type DataFlowInterface struct {
	quotes    QuoteSource
	profile   ProfileSource
	headlines HeadlineSource
	limit     int
}

type Option func(*DataFlowInterface)

func WithProfileSource(p ProfileSource) Option {
	return func(d *DataFlowInterface) { d.profile = p }
}

func WithHeadlineSource(h HeadlineSource, limit int) Option {
	return func(d *DataFlowInterface) {
		d.headlines = h
		if limit > 0 {
			d.limit = limit
		}
	}
}

// NewDataFlowInterface builds a provider around quotes.
func NewDataFlowInterface(quotes QuoteSource, opts ...Option) *DataFlowInterface {
	d := &DataFlowInterface{quotes: quotes, limit: defaultHeadlineLimit}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// New wires the sources selected by cfg.
func New(cfg *config.Config) (*DataFlowInterface, error) {
	timeout := cfg.RequestTimeout.Std()

	var quotes QuoteSource
	switch cfg.MarketDataProvider {
	case config.MarketLongport:
		lp, err := NewLongportClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("longport: %w", err)
		}
		quotes = lp
	default:
		quotes = NewYahooFinanceClient()
	}

	opts := []Option{}
	if cfg.FinnhubAPIKey != "" {
		opts = append(opts, WithProfileSource(NewFinnhubClient(cfg.FinnhubAPIKey, "", timeout)))
	} else {
		opts = append(opts, WithProfileSource(NewYahooProfileClient("", timeout)))
	}
	if cfg.HeadlinesEnabled {
		opts = append(opts, WithHeadlineSource(NewYahooHeadlines("", timeout), defaultHeadlineLimit))
	}
	return NewDataFlowInterface(quotes, opts...), nil
}

// Fetch returns a fresh snapshot for ticker. Only the quote decides success;
// profile and headline failures are logged and leave those fields empty.
func (d *DataFlowInterface) Fetch(ctx context.Context, ticker string) (*models.Snapshot, error) {
	symbol := NormalizeSymbol(ticker)
	snap, err := d.quotes.Quote(ctx, symbol)
	if err != nil {
		return nil, apperr.NewTickerError(symbol, "fetch", err)
	}

	logger := logging.WithTicker(logging.FromContext(ctx), symbol)

	var (
		wg        sync.WaitGroup
		profile   *models.CompanyProfile
		headlines []models.Headline
	)
	if d.profile != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := d.profile.Profile(ctx, symbol)
			if err != nil {
				logger.Debug().Str("error", logging.Redact(err.Error())).Str("source", d.profile.Name()).Msg("company profile unavailable")
				return
			}
			profile = p
		}()
	}
	if d.headlines != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := d.headlines.Headlines(ctx, symbol, d.limit)
			if err != nil {
				logger.Debug().Str("error", logging.Redact(err.Error())).Msg("headlines unavailable")
				return
			}
			headlines = h
		}()
	}
	wg.Wait()

	if profile != nil {
		mergeProfile(&snap.Profile, profile)
	}
	snap.Headlines = headlines
	return snap, nil
}

// mergeProfile fills empty fields of dst from src.
func mergeProfile(dst *models.CompanyProfile, src *models.CompanyProfile) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Sector == "" {
		dst.Sector = src.Sector
	}
	if dst.Industry == "" {
		dst.Industry = src.Industry
	}
	if dst.MarketCap == 0 {
		dst.MarketCap = src.MarketCap
	}
	if dst.Website == "" {
		dst.Website = src.Website
	}
}
