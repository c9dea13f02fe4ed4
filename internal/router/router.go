// Package router decides whether a query is about stock tickers or is a
// general question for the language model.
package router

import "strings"

const maxTickerLen = 5

// Decision is the routing outcome. It is either StockLookup or GeneralQuery.
type Decision interface {
	Kind() string
	decision()
}

// StockLookup asks for data on each ticker, in order of first appearance.
type StockLookup struct {
	Tickers []string `json:"tickers"`
}

// GeneralQuery forwards the original text to the language model.
type GeneralQuery struct {
	Text string `json:"text"`
}

func (StockLookup) Kind() string  { return "stock_lookup" }
func (GeneralQuery) Kind() string { return "general_query" }

func (StockLookup) decision()  {}
func (GeneralQuery) decision() {}

type Router struct {
	symbols *Symbols
	strict  bool
}

type Option func(*Router)

// WithStrict requires every bare ticker to be on the allow-list.
func WithStrict(strict bool) Option {
	return func(r *Router) {
		r.strict = strict
	}
}

// New creates a Router. A nil symbols value uses the embedded lists.
func New(symbols *Symbols, opts ...Option) *Router {
	if symbols == nil {
		symbols = DefaultSymbols()
	}
	r := &Router{symbols: symbols}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route classifies query. It performs no I/O and returns the same Decision
// for the same input.
func (r *Router) Route(query string) Decision {
	var tickers []string
	seen := make(map[string]struct{})
	toks := tokenize(query)
	shouted := r.shouted(query, toks)
	for _, tok := range toks {
		sym, ok := r.qualify(tok, shouted)
		if !ok {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		tickers = append(tickers, sym)
	}

	if len(tickers) == 0 {
		return GeneralQuery{Text: query}
	}
	return StockLookup{Tickers: tickers}
}

// Candidates returns the tokens that match the ticker shape before the
// policy is applied. Useful for explaining a routing result.
func (r *Router) Candidates(query string) []string {
	var out []string
	for _, tok := range tokenize(query) {
		if isASCIILetters(tok.Text) && len(tok.Text) <= maxTickerLen {
			out = append(out, strings.ToUpper(tok.Text))
		}
	}
	return out
}

// shouted reports whether query is prose typed in capitals: no lowercase
// letters and at least one denylisted word. Bare mentions in such a query
// must be known symbols.
func (r *Router) shouted(query string, toks []token) bool {
	if strings.ToUpper(query) != query {
		return false
	}
	for _, tok := range toks {
		if !tok.Cashtag && r.symbols.Denied(tok.Text) {
			return true
		}
	}
	return false
}

func (r *Router) qualify(tok token, shouted bool) (string, bool) {
	text := tok.Text
	if !isASCIILetters(text) || len(text) > maxTickerLen {
		return "", false
	}
	sym := strings.ToUpper(text)

	if tok.Cashtag {
		return sym, true
	}

	if isUpperASCII(text) {
		if len(text) < 2 || r.symbols.Denied(sym) {
			return "", false
		}
		if (r.strict || shouted) && !r.symbols.Known(sym) {
			return "", false
		}
		return sym, true
	}

	if len(text) < 3 || r.symbols.CommonWord(text) || !r.symbols.Known(sym) {
		return "", false
	}
	return sym, true
}
