// Package api exposes the agent over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dyike/StockAgent/internal/agent"
	"github.com/dyike/StockAgent/internal/router"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout      = 60 * time.Second
	ServiceName         = "stockagent"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
	maxQueryLen         = 2000
)

// Service is the part of the agent the handlers use.
type Service interface {
	Handle(ctx context.Context, query string) (*agent.Response, error)
	Route(query string) router.Decision
}

// ServiceSource returns the service for the current engine. The engine may
// be rebuilt between requests.
type ServiceSource func() Service

type Handler struct {
	source   ServiceSource
	chartDir string
	timeout  time.Duration
	version  string
	logger   zerolog.Logger
}

type Option func(*Handler)

func WithChartDir(dir string) Option {
	return func(h *Handler) { h.chartDir = dir }
}

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func WithVersion(v string) Option {
	return func(h *Handler) { h.version = v }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

func NewHandler(source ServiceSource, opts ...Option) *Handler {
	h := &Handler{
		source:  source,
		timeout: DefaultTimeout,
		version: "dev",
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetupRoutes builds the gin engine.
func (h *Handler) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(h.logger))
	router.Use(gin.Recovery())

	router.GET("/health", h.HealthCheck)

	v1 := router.Group("/v1")
	v1.POST("/ask", h.Ask)
	v1.GET("/route", h.Route)

	if h.chartDir != "" {
		router.Static("/charts", h.chartDir)
	}
	return router
}

// Serve runs the server until ctx is done.
func (h *Handler) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
