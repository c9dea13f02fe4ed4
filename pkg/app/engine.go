package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dyike/StockAgent/config"
	"github.com/dyike/StockAgent/internal/agent"
	"github.com/dyike/StockAgent/internal/chart"
	"github.com/dyike/StockAgent/internal/dataflows"
	"github.com/dyike/StockAgent/internal/llm"
	"github.com/dyike/StockAgent/internal/router"
	"github.com/dyike/StockAgent/internal/storage"
)

// Engine is one immutable build of the agent for a config value.
type Engine struct {
	Config  config.Config
	BuiltAt time.Time
	Version uint64

	Agent   *agent.Agent
	Router  *router.Router
	LLM     *llm.Client
	History storage.History
}

var engineSeq atomic.Uint64

// BuildEngine wires router, data sources, model client, chart renderer and
// history store from cfg.
func BuildEngine(cfg config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	symbols := router.DefaultSymbols()
	if cfg.SymbolsFile != "" {
		loaded, err := router.LoadSymbols(cfg.SymbolsFile)
		if err != nil {
			return nil, fmt.Errorf("load symbols: %w", err)
		}
		symbols = loaded
	}
	r := router.New(symbols, router.WithStrict(cfg.RouterStrict))

	data, err := dataflows.New(&cfg)
	if err != nil {
		return nil, fmt.Errorf("init market data: %w", err)
	}

	client, err := llm.New(context.Background(), &cfg)
	if err != nil {
		return nil, err
	}

	history, err := storage.Open(&cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	a := agent.New(r, data, client,
		agent.WithCharts(chart.NewRenderer(cfg.ChartDir)),
		agent.WithTimeout(cfg.RequestTimeout.Std()),
		agent.WithMaxConcurrency(cfg.MaxConcurrentFetches),
	)

	return &Engine{
		Config:  cfg,
		BuiltAt: time.Now(),
		Version: engineSeq.Add(1),
		Agent:   a,
		Router:  r,
		LLM:     client,
		History: history,
	}, nil
}

// Close releases the history store.
func (e *Engine) Close() error {
	if e == nil || e.History == nil {
		return nil
	}
	return e.History.Close()
}
