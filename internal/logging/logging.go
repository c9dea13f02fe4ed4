// Package logging wires zerolog for the CLI and the HTTP server.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dyike/StockAgent/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	Out        io.Writer
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// FromConfig derives the log settings from the application config. Console
// output goes to stderr so answers printed on stdout stay clean.
func FromConfig(cfg *config.Config) LogConfig {
	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	return LogConfig{
		Level:      level,
		Console:    true,
		Out:        os.Stderr,
		FilePath:   cfg.LogFile,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
	}
}

// NewLogger builds a logger from cfg.
func NewLogger(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		out := cfg.Out
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
		})
	}

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// Setup builds the logger for cfg and installs it as the package-level
// zerolog logger.
func Setup(cfg *config.Config) zerolog.Logger {
	logger := NewLogger(FromConfig(cfg))
	log.Logger = logger
	return logger
}

func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

type ctxKey struct{}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return log.Logger
}

// WithTicker adds a ticker to the logger context.
func WithTicker(logger zerolog.Logger, ticker string) zerolog.Logger {
	return logger.With().Str("ticker", ticker).Logger()
}

// LogAPICall logs an outbound provider call.
func LogAPICall(logger zerolog.Logger, provider, op string, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "api_call").
		Str("provider", provider).
		Str("op", op).
		Dur("duration", duration)
	if err != nil {
		event.Str("error", Redact(err.Error())).Msg("provider call failed")
		return
	}
	event.Msg("provider call completed")
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)((?:api[_-]?key|secret|access[_-]?token|token)[=:\s]+["']?)([^\s"'&]+)`),
	regexp.MustCompile(`\b(sk-[A-Za-z0-9_-]{8,})\b`),
}

// Mask shortens a credential to its first and last characters.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", 4) + secret[len(secret)-2:]
}

// Redact masks credentials embedded in free text such as error messages or
// request URLs.
func Redact(s string) string {
	s = secretPatterns[0].ReplaceAllStringFunc(s, func(m string) string {
		parts := secretPatterns[0].FindStringSubmatch(m)
		return parts[1] + Mask(parts[2])
	})
	return secretPatterns[1].ReplaceAllStringFunc(s, Mask)
}
