// Package app keeps the current engine in step with the config file.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dyike/StockAgent/config"
	"github.com/rs/zerolog/log"
)

type EngineBuilder func(config.Config) (*Engine, error)

type Option func(*Runtime)

func WithBuilder(builder EngineBuilder) Option {
	return func(r *Runtime) {
		if builder != nil {
			r.builder = builder
		}
	}
}

// WithNotifier receives "engine.reloaded" and "engine.reload_failed" events
// with a JSON payload.
func WithNotifier(fn func(topic, payload string)) Option {
	return func(r *Runtime) {
		r.notify = fn
	}
}

// WithoutWatch skips the config file watcher. One-shot commands use it.
func WithoutWatch() Option {
	return func(r *Runtime) {
		r.watch = false
	}
}

type Runtime struct {
	engine atomic.Pointer[Engine]

	builder EngineBuilder
	notify  func(string, string)
	watch   bool
	cancel  context.CancelFunc
}

func NewRuntime(cfgMgr *config.Manager, opts ...Option) (*Runtime, error) {
	if cfgMgr == nil {
		return nil, fmt.Errorf("config manager is required")
	}

	rt := &Runtime{
		builder: BuildEngine,
		watch:   true,
	}

	for _, opt := range opts {
		opt(rt)
	}

	if err := rt.reload(cfgMgr.Get()); err != nil {
		return nil, err
	}
	if !rt.watch {
		return rt, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	// a failed build rejects the new config and the manager keeps the old one
	if err := cfgMgr.Watch(ctx, rt.reload); err != nil {
		cancel()
		rt.Engine().Close()
		return nil, err
	}

	return rt, nil
}

func (r *Runtime) Engine() *Engine {
	return r.engine.Load()
}

func (r *Runtime) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	if err := r.Engine().Close(); err != nil {
		log.Warn().Err(err).Msg("close engine")
	}
}

func (r *Runtime) reload(cfg config.Config) error {
	engine, err := r.builder(cfg)
	if err != nil {
		r.notifyFailure(err)
		return err
	}
	// keep the saved queries when the history location did not change
	if cur := r.engine.Load(); cur != nil && cur.History != nil && cur.Config.HistoryDBPath == cfg.HistoryDBPath {
		if engine.History != nil {
			_ = engine.History.Close()
		}
		engine.History = cur.History
	}
	prev := r.engine.Swap(engine)
	if prev != nil && prev.History != engine.History {
		if err := prev.Close(); err != nil {
			log.Warn().Err(err).Uint64("version", prev.Version).Msg("close previous engine")
		}
	}
	log.Debug().
		Uint64("version", engine.Version).
		Str("llm_provider", cfg.LLMProvider).
		Str("market_data", cfg.MarketDataProvider).
		Msg("engine built")
	r.notifySuccess(engine)
	return nil
}

func (r *Runtime) notifySuccess(engine *Engine) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"version":  engine.Version,
		"built_at": engine.BuiltAt.UTC().Format(time.RFC3339),
	})
	r.notify("engine.reloaded", string(payload))
}

func (r *Runtime) notifyFailure(err error) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"error": err.Error(),
	})
	r.notify("engine.reload_failed", string(payload))
}
