// Package debug starts the eino visual debug server when enabled.
package debug

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/dyike/StockAgent/config"
	"github.com/rs/zerolog"
)

type EinoDebugger struct {
	config *config.Config
	logger zerolog.Logger
	init   func(ctx context.Context) error
}

func NewEinoDebugger(cfg *config.Config, logger zerolog.Logger) *EinoDebugger {
	return &EinoDebugger{
		config: cfg,
		logger: logger,
		init: func(ctx context.Context) error {
			return devops.Init(ctx)
		},
	}
}

// Initialize starts the debug server. It must run before the llm chain is
// compiled so the chain shows up in the debug UI.
func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.IsEnabled() {
		return nil
	}

	if err := d.init(ctx); err != nil {
		return fmt.Errorf("failed to initialize eino debug plugin: %w", err)
	}

	d.logger.Info().Str("url", d.GetDebugURL()).Msg("eino debug server started")
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config != nil && d.config.EinoDebugEnabled
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.IsEnabled() {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", d.config.EinoDebugPort)
}
