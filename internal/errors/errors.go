// Package errors provides the error taxonomy shared by the providers, the
// agent and the user-facing surfaces.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrInvalidTicker       = errors.New("invalid ticker")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrRateLimited         = errors.New("rate limited")
	ErrAuth                = errors.New("authentication failed")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrEmptyQuery          = errors.New("empty query")
)

// Kind names one class of the taxonomy.
type Kind string

const (
	KindNone                Kind = ""
	KindInvalidTicker       Kind = "invalid_ticker"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindRateLimited         Kind = "rate_limited"
	KindAuth                Kind = "auth_error"
	KindConfig              Kind = "config_invalid"
	KindEmptyQuery          Kind = "empty_query"
	KindInternal            Kind = "internal"
)

// TickerError scopes a failure to a single symbol.
type TickerError struct {
	Ticker string
	Op     string
	Err    error
}

func (e *TickerError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Ticker, e.Err)
}

func (e *TickerError) Unwrap() error {
	return e.Err
}

// NewTickerError creates a new TickerError.
func NewTickerError(ticker, op string, err error) *TickerError {
	return &TickerError{Ticker: ticker, Op: op, Err: err}
}

// ProviderError records which external service failed. Model is set for
// language model providers.
type ProviderError struct {
	Provider string
	Model    bool
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}

// NewModelError creates a ProviderError for a language model provider.
func NewModelError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Model: true, Err: err}
}

// MissingKeyError reports a credential that was never configured. It matches
// ErrAuth.
type MissingKeyError struct {
	Env string
}

func (e *MissingKeyError) Error() string {
	return e.Env + " is not set"
}

func (e *MissingKeyError) Unwrap() error {
	return ErrAuth
}

// Unavailable wraps a transport failure as ErrProviderUnavailable while
// keeping the cause in the chain.
func Unavailable(provider string, cause error) error {
	return NewProviderError(provider, fmt.Errorf("%w: %v", ErrProviderUnavailable, cause))
}

// KindOf maps any error onto the taxonomy.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmptyQuery):
		return KindEmptyQuery
	case errors.Is(err, ErrInvalidTicker):
		return KindInvalidTicker
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrConfigInvalid):
		return KindConfig
	case errors.Is(err, ErrProviderUnavailable), IsTransient(err):
		return KindProviderUnavailable
	default:
		return KindInternal
	}
}

// IsTransient reports network and deadline failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// UserMessage renders err as the text shown to the user, scoped to the
// ticker when there is one.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var tickerErr *TickerError
	subject := ""
	if errors.As(err, &tickerErr) {
		subject = tickerErr.Ticker
	}

	source := "The data provider"
	var provErr *ProviderError
	if errors.As(err, &provErr) && provErr.Model {
		source = "The language model"
	}

	var msg string
	switch KindOf(err) {
	case KindEmptyQuery:
		return "Please enter a question or a ticker symbol."
	case KindInvalidTicker:
		if subject != "" {
			return fmt.Sprintf("Invalid ticker symbol: %s. Please enter a valid one.", subject)
		}
		return "Invalid ticker symbol. Please enter a valid one."
	case KindAuth:
		var missing *MissingKeyError
		if errors.As(err, &missing) {
			msg = missing.Env + " is not set. AI insights and general answers are unavailable."
		} else {
			msg = source + " rejected the API key. Check your credentials."
		}
	case KindRateLimited:
		msg = source + " is rate limiting requests. Try again in a moment."
	case KindProviderUnavailable:
		msg = source + " is unavailable right now."
	case KindConfig:
		msg = "The configuration is invalid: " + err.Error()
	default:
		msg = "Something went wrong: " + err.Error()
	}
	if subject != "" {
		return subject + ": " + msg
	}
	return msg
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// HTTPStatusKind classifies a provider HTTP status code.
func HTTPStatusKind(status int) error {
	switch {
	case status == 401 || status == 403:
		return ErrAuth
	case status == 404:
		return ErrInvalidTicker
	case status == 429:
		return ErrRateLimited
	case status >= 500:
		return ErrProviderUnavailable
	default:
		return nil
	}
}

// ContainsStatus reports whether an error message embeds one of the given
// HTTP status codes, as the model SDKs only surface them in text.
func ContainsStatus(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, code := range codes {
		if strings.Contains(msg, "status code: "+code) ||
			strings.Contains(msg, "status code "+code) ||
			strings.Contains(msg, "http "+code) {
			return true
		}
	}
	return false
}
