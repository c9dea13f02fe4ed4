package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"ticker not found", NewTickerError("ZZZZ", "fetch", ErrInvalidTicker), KindInvalidTicker},
		{"wrapped auth", fmt.Errorf("complete: %w", NewProviderError("mistral", ErrAuth)), KindAuth},
		{"rate limit", NewProviderError("finnhub", ErrRateLimited), KindRateLimited},
		{"unavailable", Unavailable("yahoo", errors.New("connection reset")), KindProviderUnavailable},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), KindProviderUnavailable},
		{"empty", ErrEmptyQuery, KindEmptyQuery},
		{"other", errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestTickerErrorUnwrap(t *testing.T) {
	err := NewTickerError("TSLA", "fetch", Unavailable("yahoo", context.DeadlineExceeded))

	assert.True(t, errors.Is(err, ErrProviderUnavailable))
	var te *TickerError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "TSLA", te.Ticker)
	assert.Contains(t, err.Error(), "fetch TSLA")
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t,
		"Invalid ticker symbol: ZZZZ. Please enter a valid one.",
		UserMessage(NewTickerError("ZZZZ", "fetch", ErrInvalidTicker)))
	assert.Equal(t,
		"AAPL: The data provider is unavailable right now.",
		UserMessage(NewTickerError("AAPL", "fetch", Unavailable("yahoo", errors.New("timeout")))))
	assert.Contains(t, UserMessage(ErrAuth), "API key")
}

func TestUserMessageNamesTheSource(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"model down", NewModelError("mistral", fmt.Errorf("%w: dial tcp", ErrProviderUnavailable)),
			"The language model is unavailable right now."},
		{"data down", Unavailable("yahoo", errors.New("dial tcp")),
			"The data provider is unavailable right now."},
		{"model rejected key", NewModelError("openai", ErrAuth),
			"The language model rejected the API key. Check your credentials."},
		{"data rejected key", NewProviderError("finnhub", ErrAuth),
			"The data provider rejected the API key. Check your credentials."},
		{"model key missing", NewModelError("mistral", &MissingKeyError{Env: "MISTRAL_API_KEY"}),
			"MISTRAL_API_KEY is not set. AI insights and general answers are unavailable."},
		{"insight scoped to ticker", NewTickerError("TSLA", "explain", NewModelError("deepseek", ErrRateLimited)),
			"TSLA: The language model is rate limiting requests. Try again in a moment."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UserMessage(tc.err))
		})
	}

	assert.True(t, errors.Is(&MissingKeyError{Env: "X"}, ErrAuth))
	assert.Equal(t, KindAuth, KindOf(NewModelError("mistral", &MissingKeyError{Env: "X"})))
}

func TestHTTPStatusKind(t *testing.T) {
	assert.Equal(t, ErrAuth, HTTPStatusKind(401))
	assert.Equal(t, ErrRateLimited, HTTPStatusKind(429))
	assert.Equal(t, ErrProviderUnavailable, HTTPStatusKind(503))
	assert.Nil(t, HTTPStatusKind(200))
}

func TestContainsStatus(t *testing.T) {
	assert.True(t, ContainsStatus(errors.New("error, status code: 429, message: too many requests"), "429"))
	assert.True(t, ContainsStatus(errors.New("HTTP 401 Unauthorized"), "401", "403"))
	assert.False(t, ContainsStatus(errors.New("read 4290 bytes"), "429"))
}
