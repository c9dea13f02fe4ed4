package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "****", Mask("short"))
	assert.Equal(t, "sk****yz", Mask("sk-abcdefghxyz"))
}

func TestRedact(t *testing.T) {
	out := Redact("GET /api/v1/stock/profile2?symbol=TSLA&token=abcdef123456")
	assert.NotContains(t, out, "abcdef123456")
	assert.Contains(t, out, "symbol=TSLA")

	out = Redact("provider said: invalid key sk-live-0123456789abcdef")
	assert.NotContains(t, out, "0123456789abcdef")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Console: true, Out: &buf})

	logger.Info().Msg("hidden")
	logger.Warn().Msg("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := WithLogger(context.Background(), WithTicker(logger, "TSLA"))

	got := FromContext(ctx)
	got.Info().Msg("fetch")
	assert.Contains(t, buf.String(), `"ticker":"TSLA"`)
}

func TestLogAPICallRedactsErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	err := errors.New(`Get "https://finnhub.io/api/v1/stock/profile2?symbol=TSLA&token=fh_SECRETVALUE99": dial tcp: refused`)
	LogAPICall(logger, "finnhub", "profile2", time.Millisecond, err)

	assert.Contains(t, buf.String(), "provider call failed")
	assert.Contains(t, buf.String(), "symbol=TSLA")
	assert.NotContains(t, buf.String(), "SECRETVALUE")
}
