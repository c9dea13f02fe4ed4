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

const (
	finnhubName    = "finnhub"
	finnhubBaseURL = "https://finnhub.io/api/v1"
)

// FinnhubClient handles Finnhub API operations
type FinnhubClient struct {
	client *resty.Client
	apiKey string
}

// NewFinnhubClient creates a new Finnhub client
func NewFinnhubClient(apiKey, baseURL string, timeout time.Duration) *FinnhubClient {
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)

	return &FinnhubClient{
		client: client,
		apiKey: apiKey,
	}
}

func (fc *FinnhubClient) Name() string { return finnhubName }

// finnhubProfile is the /stock/profile2 payload. Unknown symbols return {}.
type finnhubProfile struct {
	Country              string  `json:"country"`
	Currency             string  `json:"currency"`
	Exchange             string  `json:"exchange"`
	Name                 string  `json:"name"`
	Ticker               string  `json:"ticker"`
	WebURL               string  `json:"weburl"`
	FinnhubIndustry      string  `json:"finnhubIndustry"`
	MarketCapitalization float64 `json:"marketCapitalization"` // millions
}

// Profile gets company metadata for a symbol.
func (fc *FinnhubClient) Profile(ctx context.Context, ticker string) (profile *models.CompanyProfile, err error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("Finnhub API key not configured: %w", apperr.ErrConfigInvalid)
	}
	if err := ValidateSymbol(ticker); err != nil {
		return nil, err
	}
	symbol := NormalizeSymbol(ticker)

	start := time.Now()
	defer func() { timed(ctx, finnhubName, "profile2", start, err) }()

	resp, err := fc.client.R().
		SetContext(ctx).
		SetHeader("X-Finnhub-Token", fc.apiKey).
		SetQueryParam("symbol", symbol).
		Get("/stock/profile2")
	if err != nil {
		return nil, classifyTransport(finnhubName, fmt.Errorf("fetch profile for %s: %w", symbol, err))
	}
	if resp.StatusCode() != 200 {
		return nil, classifyStatus(finnhubName, resp.StatusCode(), resp.String())
	}

	var raw finnhubProfile
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("parse profile response: %w", err)
	}
	if raw.Ticker == "" && raw.Name == "" {
		return nil, apperr.NewProviderError(finnhubName, fmt.Errorf("no profile for %s: %w", symbol, apperr.ErrInvalidTicker))
	}

	return &models.CompanyProfile{
		Name:      raw.Name,
		Industry:  raw.FinnhubIndustry,
		MarketCap: int64(raw.MarketCapitalization * 1e6),
		Website:   raw.WebURL,
	}, nil
}
