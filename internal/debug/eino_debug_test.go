package debug

import (
	"context"
	"errors"
	"testing"

	"github.com/dyike/StockAgent/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledDebuggerIsNoop(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	d := NewEinoDebugger(cfg, zerolog.Nop())
	called := false
	d.init = func(context.Context) error { called = true; return nil }

	require.NoError(t, d.Initialize(context.Background()))
	assert.False(t, called)
	assert.Empty(t, d.GetDebugURL())
}

func TestEnabledDebugger(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.EinoDebugEnabled = true
	cfg.EinoDebugPort = 52538

	d := NewEinoDebugger(cfg, zerolog.Nop())
	d.init = func(context.Context) error { return nil }
	require.NoError(t, d.Initialize(context.Background()))
	assert.Equal(t, "http://localhost:52538", d.GetDebugURL())

	d.init = func(context.Context) error { return errors.New("port in use") }
	err := d.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port in use")
}
