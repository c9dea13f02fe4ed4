package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dyike/StockAgent/internal/chart"
	apperr "github.com/dyike/StockAgent/internal/errors"
	"github.com/dyike/StockAgent/internal/llm"
	"github.com/dyike/StockAgent/internal/models"
	"github.com/dyike/StockAgent/internal/router"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeData struct {
	mu      sync.Mutex
	fail    map[string]error
	delay   map[string]time.Duration
	noSerie bool
	calls   []string
}

func (f *fakeData) Fetch(ctx context.Context, ticker string) (*models.Snapshot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ticker)
	f.mu.Unlock()

	if d := f.delay[ticker]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, apperr.Unavailable("fake", ctx.Err())
		}
	}
	if err := f.fail[ticker]; err != nil {
		return nil, err
	}
	snap := &models.Snapshot{Ticker: ticker, Price: decimal.NewFromInt(100), Source: "fake"}
	if !f.noSerie {
		start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		snap.Series = []models.PricePoint{
			{Date: start, Close: decimal.NewFromInt(90)},
			{Date: start.AddDate(0, 0, 1), Close: decimal.NewFromInt(100)},
		}
	}
	return snap, nil
}

type fakeModel struct {
	mu      sync.Mutex
	err     error
	prompts []string
}

func (f *fakeModel) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return "answer: " + firstLine(prompt), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

type fakeCharts struct {
	err error
}

func (f fakeCharts) Render(snap *models.Snapshot) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "/tmp/" + chart.FileName(snap.Ticker), nil
}

func newAgent(data *fakeData, model llm.Completer, opts ...Option) *Agent {
	return New(router.New(nil), data, model, opts...)
}

func TestHandleEmptyQuery(t *testing.T) {
	a := newAgent(&fakeData{}, &fakeModel{})
	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := a.Handle(context.Background(), q)
		assert.ErrorIs(t, err, apperr.ErrEmptyQuery)
	}
}

func TestHandleGeneralQuery(t *testing.T) {
	data := &fakeData{}
	model := &fakeModel{}
	a := newAgent(data, model)

	resp, err := a.Handle(context.Background(), "explain machine learning")
	require.NoError(t, err)

	assert.Equal(t, "general_query", resp.Decision.Kind())
	assert.Equal(t, "answer: explain machine learning", resp.Answer)
	assert.NoError(t, resp.AnswerErr)
	assert.Empty(t, resp.Results)
	assert.Empty(t, data.calls)
}

func TestHandleLookupKeepsQueryOrder(t *testing.T) {
	data := &fakeData{delay: map[string]time.Duration{"AAPL": 30 * time.Millisecond}}
	model := &fakeModel{}
	a := newAgent(data, model, WithCharts(fakeCharts{}))

	resp, err := a.Handle(context.Background(), "compare AAPL, TSLA and $NVDA")
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "TSLA", "NVDA"}, resp.Tickers())
	require.Len(t, resp.Results, 3)
	for i, want := range []string{"AAPL", "TSLA", "NVDA"} {
		r := resp.Results[i]
		assert.Equal(t, want, r.Ticker)
		assert.True(t, r.OK())
		assert.Equal(t, "/tmp/"+want+"_plot.png", r.ChartPath)
		assert.Contains(t, r.Insight, want)
	}
	assert.False(t, resp.Fallback)
	assert.Empty(t, resp.Answer)
}

func TestHandleOneTickerFails(t *testing.T) {
	data := &fakeData{fail: map[string]error{
		"TSLA": apperr.NewTickerError("TSLA", "fetch", apperr.ErrInvalidTicker),
	}}
	a := newAgent(data, &fakeModel{})

	resp, err := a.Handle(context.Background(), "AAPL TSLA")
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	assert.True(t, resp.Results[0].OK())
	assert.False(t, resp.Results[1].OK())
	assert.ErrorIs(t, resp.Results[1].Err, apperr.ErrInvalidTicker)
	assert.Equal(t, "Invalid ticker symbol: TSLA. Please enter a valid one.", apperr.UserMessage(resp.Results[1].Err))
	assert.False(t, resp.Fallback)
}

func TestHandleFallsBackWhenNothingResolves(t *testing.T) {
	data := &fakeData{fail: map[string]error{
		"ZZZZ": apperr.ErrInvalidTicker,
	}}
	model := &fakeModel{}
	a := newAgent(data, model)

	resp, err := a.Handle(context.Background(), "what about ZZZZ today")
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.ErrorIs(t, resp.Results[0].Err, apperr.ErrInvalidTicker)
	var te *apperr.TickerError
	require.True(t, errors.As(resp.Results[0].Err, &te))
	assert.Equal(t, "ZZZZ", te.Ticker)

	assert.True(t, resp.Fallback)
	assert.Equal(t, "answer: what about ZZZZ today", resp.Answer)
}

func TestHandleModelFailureKeepsSnapshot(t *testing.T) {
	model := &fakeModel{err: apperr.NewProviderError("mistral", apperr.ErrRateLimited)}
	a := newAgent(&fakeData{}, model)

	resp, err := a.Handle(context.Background(), "$TSLA")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	r := resp.Results[0]
	assert.True(t, r.OK())
	assert.Empty(t, r.Insight)
	assert.ErrorIs(t, r.InsightErr, apperr.ErrRateLimited)
}

func TestHandleGeneralModelFailure(t *testing.T) {
	model := &fakeModel{err: apperr.NewProviderError("mistral", apperr.ErrAuth)}
	a := newAgent(&fakeData{}, model)

	resp, err := a.Handle(context.Background(), "what is inflation")
	require.NoError(t, err)
	assert.Empty(t, resp.Answer)
	assert.ErrorIs(t, resp.AnswerErr, apperr.ErrAuth)
}

func TestHandleWithoutSeries(t *testing.T) {
	model := &fakeModel{}
	a := newAgent(&fakeData{noSerie: true}, model, WithCharts(fakeCharts{err: chart.ErrNotEnoughData}))

	resp, err := a.Handle(context.Background(), "$AAPL")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	r := resp.Results[0]
	assert.Equal(t, llm.NoTrendData, r.Insight)
	assert.Empty(t, r.ChartPath)
	assert.Empty(t, model.prompts)
}

func TestHandleChartFailureIsNotFatal(t *testing.T) {
	a := newAgent(&fakeData{}, &fakeModel{}, WithCharts(fakeCharts{err: fmt.Errorf("disk full")}))

	resp, err := a.Handle(context.Background(), "$AAPL")
	require.NoError(t, err)
	r := resp.Results[0]
	assert.True(t, r.OK())
	assert.Empty(t, r.ChartPath)
	assert.NotEmpty(t, r.Insight)
}

func TestHandleFetchTimeout(t *testing.T) {
	data := &fakeData{delay: map[string]time.Duration{"AAPL": time.Second}}
	a := newAgent(data, &fakeModel{}, WithTimeout(20*time.Millisecond))

	resp, err := a.Handle(context.Background(), "$AAPL $TSLA")
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.ErrorIs(t, resp.Results[0].Err, apperr.ErrProviderUnavailable)
	assert.True(t, resp.Results[1].OK())
}

func TestHandleBoundsConcurrency(t *testing.T) {
	var (
		mu      sync.Mutex
		running int
		peak    int
	)
	data := &trackingData{enter: func() {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
	}, leave: func() {
		mu.Lock()
		running--
		mu.Unlock()
	}}
	a := New(router.New(nil), data, &fakeModel{}, WithMaxConcurrency(2))

	resp, err := a.Handle(context.Background(), "$AAPL $TSLA $NVDA $MSFT $AMZN")
	require.NoError(t, err)
	assert.Len(t, resp.Results, 5)
	assert.LessOrEqual(t, peak, 2)
}

type trackingData struct {
	enter, leave func()
}

func (d *trackingData) Fetch(_ context.Context, ticker string) (*models.Snapshot, error) {
	d.enter()
	defer d.leave()
	time.Sleep(10 * time.Millisecond)
	return &models.Snapshot{Ticker: ticker, Price: decimal.NewFromInt(1)}, nil
}
