package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperr "github.com/dyike/StockAgent/internal/errors"
	"github.com/dyike/StockAgent/internal/models"
	"github.com/go-resty/resty/v2"
)

const yahooSummaryURL = "https://query2.finance.yahoo.com"

// YahooProfileClient reads the assetProfile module of Yahoo's quoteSummary.
// It needs no key and is used when Finnhub is not configured.
type YahooProfileClient struct {
	client *resty.Client
}

func NewYahooProfileClient(baseURL string, timeout time.Duration) *YahooProfileClient {
	if baseURL == "" {
		baseURL = yahooSummaryURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; StockAgent/1.0)")
	return &YahooProfileClient{client: client}
}

func (yp *YahooProfileClient) Name() string { return "yahoo-profile" }

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
				Website  string `json:"website"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func (yp *YahooProfileClient) Profile(ctx context.Context, ticker string) (profile *models.CompanyProfile, err error) {
	if err := ValidateSymbol(ticker); err != nil {
		return nil, err
	}
	symbol := NormalizeSymbol(ticker)

	start := time.Now()
	defer func() { timed(ctx, yp.Name(), "assetProfile", start, err) }()

	resp, err := yp.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParam("modules", "assetProfile").
		Get("/v10/finance/quoteSummary/{symbol}")
	if err != nil {
		return nil, classifyTransport(yp.Name(), fmt.Errorf("fetch asset profile for %s: %w", symbol, err))
	}
	if resp.StatusCode() != 200 {
		return nil, classifyStatus(yp.Name(), resp.StatusCode(), resp.String())
	}

	var payload quoteSummaryResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("parse asset profile: %w", err)
	}
	if e := payload.QuoteSummary.Error; e != nil {
		return nil, apperr.NewProviderError(yp.Name(), fmt.Errorf("%s: %s: %w", e.Code, e.Description, apperr.ErrInvalidTicker))
	}
	if len(payload.QuoteSummary.Result) == 0 {
		return nil, apperr.NewProviderError(yp.Name(), fmt.Errorf("no asset profile for %s: %w", symbol, apperr.ErrInvalidTicker))
	}

	ap := payload.QuoteSummary.Result[0].AssetProfile
	return &models.CompanyProfile{
		Sector:   ap.Sector,
		Industry: ap.Industry,
		Website:  ap.Website,
	}, nil
}
