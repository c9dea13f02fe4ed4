package dataflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperr "github.com/dyike/StockAgent/internal/errors"
	"github.com/dyike/StockAgent/internal/logging"
)

// ValidateSymbol checks if a stock symbol is valid format
func ValidateSymbol(symbol string) error {
	symbol = NormalizeSymbol(symbol)
	if len(symbol) == 0 {
		return fmt.Errorf("symbol cannot be empty: %w", apperr.ErrInvalidTicker)
	}
	if len(symbol) > 10 {
		return fmt.Errorf("symbol too long: %s: %w", symbol, apperr.ErrInvalidTicker)
	}
	return nil
}

// NormalizeSymbol converts symbol to standard format
func NormalizeSymbol(symbol string) string {
	return strings.TrimPrefix(strings.TrimSpace(strings.ToUpper(symbol)), "$")
}

// classifyStatus turns a non-2xx HTTP status into a taxonomy error.
func classifyStatus(provider string, status int, body string) error {
	kind := apperr.HTTPStatusKind(status)
	if kind == nil {
		kind = apperr.ErrProviderUnavailable
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return apperr.NewProviderError(provider, fmt.Errorf("%w: HTTP %d: %s", kind, status, logging.Redact(body)))
}

// classifyTransport maps a failed call onto the taxonomy, keeping errors that
// are already classified.
func classifyTransport(provider string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case apperr.Is(err, apperr.ErrInvalidTicker),
		apperr.Is(err, apperr.ErrAuth),
		apperr.Is(err, apperr.ErrRateLimited),
		apperr.Is(err, apperr.ErrProviderUnavailable):
		return err
	}
	return apperr.Unavailable(provider, err)
}

// runBlocking runs a call that has no context support and abandons it when
// ctx is done.
func runBlocking[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// timed logs the duration and outcome of a provider call.
func timed(ctx context.Context, provider, op string, start time.Time, err error) {
	logging.LogAPICall(logging.FromContext(ctx), provider, op, time.Since(start), err)
}
