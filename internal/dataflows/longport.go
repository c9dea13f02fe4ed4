package dataflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyike/StockAgent/config"
	apperr "github.com/dyike/StockAgent/internal/errors"
	"github.com/dyike/StockAgent/internal/models"
	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"
)

const longportName = "longport"

// trading days in roughly one calendar month
const longportMonthBars = 22

// longportQuoter is the subset of *quote.QuoteContext used here.
type longportQuoter interface {
	Quote(ctx context.Context, symbols []string) ([]*quote.SecurityQuote, error)
	StaticInfo(ctx context.Context, symbols []string) ([]*quote.StaticInfo, error)
	Candlesticks(ctx context.Context, symbol string, period quote.Period, count int32, adjustType quote.AdjustType) ([]*quote.Candlestick, error)
}

type LongportClient struct {
	quoteCtx longportQuoter
}

func NewLongportClient(cfg *config.Config) (*LongportClient, error) {
	if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
		return nil, fmt.Errorf("longport API credentials not configured: %w", apperr.ErrConfigInvalid)
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{quoteCtx: quoteContext}, nil
}

func (lpc *LongportClient) Name() string { return longportName }

// Quote gets the last done price, static info and daily candles.
func (lpc *LongportClient) Quote(ctx context.Context, ticker string) (snap *models.Snapshot, err error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	if err := ValidateSymbol(ticker); err != nil {
		return nil, err
	}
	display := NormalizeSymbol(ticker)
	symbol := LongportSymbol(display)

	start := time.Now()
	defer func() { timed(ctx, longportName, "quote", start, err) }()

	infos, err := lpc.quoteCtx.StaticInfo(ctx, []string{symbol})
	if err != nil {
		return nil, classifyTransport(longportName, fmt.Errorf("static info for %s: %w", symbol, err))
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, apperr.NewProviderError(longportName, fmt.Errorf("no security %s: %w", symbol, apperr.ErrInvalidTicker))
	}
	info := infos[0]

	quotes, err := lpc.quoteCtx.Quote(ctx, []string{symbol})
	if err != nil {
		return nil, classifyTransport(longportName, fmt.Errorf("quote for %s: %w", symbol, err))
	}

	sticks, err := lpc.quoteCtx.Candlesticks(ctx, symbol, quote.PeriodDay, longportMonthBars, quote.AdjustTypeNo)
	if err != nil {
		return nil, classifyTransport(longportName, fmt.Errorf("candlesticks for %s: %w", symbol, err))
	}

	snap = &models.Snapshot{
		Ticker:   display,
		Currency: info.Currency,
		Exchange: info.Exchange,
		Profile: models.CompanyProfile{
			Name: info.NameEn,
		},
		Source:    longportName,
		FetchedAt: time.Now(),
	}
	for _, stick := range sticks {
		if stick == nil || stick.Close == nil {
			continue
		}
		snap.Series = append(snap.Series, models.PricePoint{
			Date:  time.Unix(stick.Timestamp, 0).UTC(),
			Close: *stick.Close,
		})
	}

	if len(quotes) > 0 && quotes[0] != nil && quotes[0].LastDone != nil {
		snap.Price = *quotes[0].LastDone
	} else if snap.HasSeries() {
		snap.Price = snap.EndClose()
	}
	if info.TotalShares > 0 && !snap.Price.IsZero() {
		snap.Profile.MarketCap = snap.Price.Mul(decimal.NewFromInt(info.TotalShares)).IntPart()
	}
	return snap, nil
}

// LongportSymbol adds the US market suffix when the symbol has none.
func LongportSymbol(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}
