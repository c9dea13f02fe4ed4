package router

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute(t *testing.T) {
	r := New(nil)

	cases := []struct {
		name  string
		query string
		want  Decision
	}{
		{"single ticker", "TSLA", StockLookup{Tickers: []string{"TSLA"}}},
		{"general question", "Explain machine learning in simple terms",
			GeneralQuery{Text: "Explain machine learning in simple terms"}},
		{"order of appearance", "Compare TSLA and AAPL", StockLookup{Tickers: []string{"TSLA", "AAPL"}}},
		{"no single letter tickers", "A stock is not always a good buy",
			GeneralQuery{Text: "A stock is not always a good buy"}},
		{"cashtags", "$tsla vs $F", StockLookup{Tickers: []string{"TSLA", "F"}}},
		{"acronyms are ignored", "What does the CEO of TSLA think about AI?", StockLookup{Tickers: []string{"TSLA"}}},
		{"known lowercase symbols", "how are tsla and nvda doing", StockLookup{Tickers: []string{"TSLA", "NVDA"}}},
		{"common words are not tickers", "is it now or never", GeneralQuery{Text: "is it now or never"}},
		{"duplicates collapse", "TSLA, tsla and $TSLA", StockLookup{Tickers: []string{"TSLA"}}},
		{"too long", "GOOGLE earnings", GeneralQuery{Text: "GOOGLE earnings"}},
		{"digits are not tickers", "Q3 results for AAPL", StockLookup{Tickers: []string{"AAPL"}}},
		{"mixed query resolves to lookup", "stock price of MSFT and what is inflation?",
			StockLookup{Tickers: []string{"MSFT"}}},
		{"possessive", "TSLA's chart", StockLookup{Tickers: []string{"TSLA"}}},
		{"empty", "", GeneralQuery{Text: ""}},
		{"direction words", "Is AAPL UP or DOWN today?", StockLookup{Tickers: []string{"AAPL"}}},
		{"shouted question", "WHAT IS THE PRICE OF TSLA", StockLookup{Tickers: []string{"TSLA"}}},
		{"shouted trade question", "Should I BUY OR SELL MY NVDA SHARES", StockLookup{Tickers: []string{"NVDA"}}},
		{"shouted help", "HELP ME", GeneralQuery{Text: "HELP ME"}},
		{"shouted unknown symbol", "WHAT ABOUT XYZW", GeneralQuery{Text: "WHAT ABOUT XYZW"}},
		{"shouted cashtag", "WHAT ABOUT $XYZW", StockLookup{Tickers: []string{"XYZW"}}},
		{"bare symbols without prose", "AAPL ZZZZ", StockLookup{Tickers: []string{"AAPL", "ZZZZ"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Route(tc.query))
		})
	}
}

func TestRouteKeepsOriginalText(t *testing.T) {
	q := "  what's a p/e ratio?  "
	d := New(nil).Route(q)
	gq, ok := d.(GeneralQuery)
	require.True(t, ok)
	assert.Equal(t, q, gq.Text)
	assert.Equal(t, "general_query", d.Kind())
}

func TestRouteIsIdempotent(t *testing.T) {
	r := New(nil)
	for _, q := range []string{"Compare TSLA and AAPL", "hello", "$F and GM"} {
		assert.Equal(t, r.Route(q), r.Route(q))
	}
}

func TestRouteStrict(t *testing.T) {
	loose := New(nil)
	strict := New(nil, WithStrict(true))

	assert.Equal(t, StockLookup{Tickers: []string{"XYZW", "TSLA"}}, loose.Route("Compare XYZW and TSLA"))
	assert.Equal(t, StockLookup{Tickers: []string{"TSLA"}}, strict.Route("Compare XYZW and TSLA"))
	assert.Equal(t, StockLookup{Tickers: []string{"XYZW"}}, strict.Route("what about $xyzw"))
}

func TestCandidates(t *testing.T) {
	got := New(nil).Candidates("A CEO bought TSLA")
	assert.Equal(t, []string{"A", "CEO", "TSLA"}, got)
}

func TestLoadSymbolsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.yaml")
	data := []byte("known_symbols: [acme]\nuppercase_denylist: [TSLA]\ncommon_words: []\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	symbols, err := LoadSymbols(path)
	require.NoError(t, err)
	assert.True(t, symbols.Known("ACME"))
	assert.False(t, symbols.Known("TSLA"))

	r := New(symbols)
	assert.Equal(t, StockLookup{Tickers: []string{"ACME"}}, r.Route("news on acme"))
	assert.Equal(t, GeneralQuery{Text: "TSLA"}, r.Route("TSLA"))
}

func TestLoadSymbolsDefaults(t *testing.T) {
	symbols, err := LoadSymbols("")
	require.NoError(t, err)
	assert.True(t, symbols.Known("aapl"))
	assert.True(t, symbols.Denied("ceo"))
	assert.True(t, symbols.CommonWord("NOW"))

	_, err = LoadSymbols(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
