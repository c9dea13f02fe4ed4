// Package agent turns one query into a response: route it, fetch the data
// for each ticker or ask the language model.
package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dyike/StockAgent/internal/chart"
	"github.com/dyike/StockAgent/internal/dataflows"
	apperr "github.com/dyike/StockAgent/internal/errors"
	"github.com/dyike/StockAgent/internal/llm"
	"github.com/dyike/StockAgent/internal/logging"
	"github.com/dyike/StockAgent/internal/models"
	"github.com/dyike/StockAgent/internal/router"
)

// ErrEmptyQuery is returned for blank input.
var ErrEmptyQuery = apperr.ErrEmptyQuery

const (
	defaultTimeout     = 20 * time.Second
	defaultConcurrency = 4
)

// ChartRenderer writes a chart image for a snapshot and returns its path.
type ChartRenderer interface {
	Render(snap *models.Snapshot) (string, error)
}

// TickerResult is the outcome for one ticker. Err is set when the snapshot
// could not be fetched; chart and insight failures never drop the snapshot.
type TickerResult struct {
	Ticker     string
	Snapshot   *models.Snapshot
	ChartPath  string
	Insight    string
	Err        error
	InsightErr error
}

// OK reports whether a snapshot was fetched.
func (r TickerResult) OK() bool {
	return r.Err == nil && r.Snapshot != nil
}

// Response is what the renderers consume.
type Response struct {
	Query    string
	Decision router.Decision
	Results  []TickerResult

	// Answer holds the model reply for a general query, or for a lookup in
	// which no ticker resolved (Fallback).
	Answer    string
	AnswerErr error
	Fallback  bool
}

// Tickers lists the tickers of a lookup decision.
func (r *Response) Tickers() []string {
	if lookup, ok := r.Decision.(router.StockLookup); ok {
		return lookup.Tickers
	}
	return nil
}

type Agent struct {
	router      *router.Router
	data        dataflows.Provider
	model       llm.Completer
	charts      ChartRenderer
	timeout     time.Duration
	concurrency int
}

type Option func(*Agent)

func WithCharts(r ChartRenderer) Option {
	return func(a *Agent) { a.charts = r }
}

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithMaxConcurrency bounds how many tickers are processed at once.
func WithMaxConcurrency(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func New(r *router.Router, data dataflows.Provider, model llm.Completer, opts ...Option) *Agent {
	a := &Agent{
		router:      r,
		data:        data,
		model:       model,
		timeout:     defaultTimeout,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Route exposes the routing decision without doing any I/O.
func (a *Agent) Route(query string) router.Decision {
	return a.router.Route(query)
}

// Handle answers one query. Provider failures are reported inside the
// Response; only blank input is an error.
func (a *Agent) Handle(ctx context.Context, query string) (*Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	logger := logging.FromContext(ctx)
	decision := a.router.Route(query)
	resp := &Response{Query: query, Decision: decision}

	switch d := decision.(type) {
	case router.StockLookup:
		logger.Info().Strs("tickers", d.Tickers).Msg("stock lookup")
		resp.Results = a.lookup(ctx, d.Tickers)
		if !anyOK(resp.Results) {
			logger.Info().Msg("no ticker resolved, answering as a general question")
			resp.Fallback = true
			resp.Answer, resp.AnswerErr = a.complete(ctx, query)
		}
	case router.GeneralQuery:
		logger.Info().Msg("general query")
		resp.Answer, resp.AnswerErr = a.complete(ctx, d.Text)
	}
	return resp, nil
}

// lookup processes tickers concurrently and returns results in input order.
func (a *Agent) lookup(ctx context.Context, tickers []string) []TickerResult {
	results := make([]TickerResult, len(tickers))
	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup

	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = TickerResult{Ticker: ticker, Err: apperr.NewTickerError(ticker, "fetch", apperr.Unavailable("agent", ctx.Err()))}
				return
			}
			results[i] = a.processTicker(ctx, ticker)
		}(i, ticker)
	}
	wg.Wait()
	return results
}

func (a *Agent) processTicker(ctx context.Context, ticker string) TickerResult {
	res := TickerResult{Ticker: ticker}
	logger := logging.WithTicker(logging.FromContext(ctx), ticker)
	ctx = logging.WithLogger(ctx, logger)

	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	snap, err := a.data.Fetch(fetchCtx, ticker)
	cancel()
	if err != nil {
		var te *apperr.TickerError
		if !errors.As(err, &te) {
			err = apperr.NewTickerError(ticker, "fetch", err)
		}
		logger.Warn().Str("error", logging.Redact(err.Error())).Msg("snapshot fetch failed")
		res.Err = err
		return res
	}
	res.Snapshot = snap

	if a.charts != nil {
		path, err := a.charts.Render(snap)
		switch {
		case err == nil:
			res.ChartPath = path
		case errors.Is(err, chart.ErrNotEnoughData):
		default:
			logger.Warn().Str("error", logging.Redact(err.Error())).Msg("chart render failed")
		}
	}

	insightCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	insight, err := llm.ExplainTrend(insightCtx, a.model, snap)
	if err != nil {
		logger.Warn().Str("error", logging.Redact(err.Error())).Msg("trend insight failed")
		res.InsightErr = apperr.NewTickerError(ticker, "explain", err)
		return res
	}
	res.Insight = insight
	return res
}

func (a *Agent) complete(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	answer, err := a.model.Complete(ctx, text)
	if err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().Str("error", logging.Redact(err.Error())).Msg("model call failed")
	}
	return answer, err
}

func anyOK(results []TickerResult) bool {
	for _, r := range results {
		if r.OK() {
			return true
		}
	}
	return false
}
