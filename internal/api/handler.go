package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyike/StockAgent/internal/agent"
	apperr "github.com/dyike/StockAgent/internal/errors"
	"github.com/dyike/StockAgent/internal/logging"
	"github.com/dyike/StockAgent/internal/models"
	"github.com/dyike/StockAgent/internal/router"
	"github.com/gin-gonic/gin"
)

type askRequest struct {
	Query string `json:"query"`
}

type errorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

type tickerBody struct {
	Ticker       string           `json:"ticker"`
	Snapshot     *models.Snapshot `json:"snapshot,omitempty"`
	ChartURL     string           `json:"chart_url,omitempty"`
	Insight      string           `json:"insight,omitempty"`
	Error        *errorBody       `json:"error,omitempty"`
	InsightError *errorBody       `json:"insight_error,omitempty"`
}

type askResponse struct {
	RequestID   string       `json:"request_id"`
	Query       string       `json:"query"`
	Kind        string       `json:"kind"`
	Tickers     []string     `json:"tickers,omitempty"`
	Results     []tickerBody `json:"results,omitempty"`
	Answer      string       `json:"answer,omitempty"`
	AnswerError *errorBody   `json:"answer_error,omitempty"`
	Fallback    bool         `json:"fallback,omitempty"`
}

type routeResponse struct {
	Query   string   `json:"query"`
	Kind    string   `json:"kind"`
	Tickers []string `json:"tickers,omitempty"`
}

// Ask handles POST /v1/ask.
func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, err, "request body must be JSON with a query field")
		return
	}
	if len(req.Query) > maxQueryLen {
		h.handleError(c, http.StatusBadRequest, errors.New("query too long"), "query is too long")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp, err := h.source().Handle(ctx, req.Query)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperr.ErrEmptyQuery) {
			status = http.StatusBadRequest
		}
		h.handleError(c, status, err, apperr.UserMessage(err))
		return
	}

	c.JSON(http.StatusOK, h.toAskResponse(c.GetString(RequestIDContextKey), resp))
}

// Route handles GET /v1/route?q=. It never calls a provider.
func (h *Handler) Route(c *gin.Context) {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		h.handleError(c, http.StatusBadRequest, apperr.ErrEmptyQuery, apperr.UserMessage(apperr.ErrEmptyQuery))
		return
	}
	decision := h.source().Route(q)
	c.JSON(http.StatusOK, routeResponse{
		Query:   q,
		Kind:    decision.Kind(),
		Tickers: tickersOf(decision),
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
	})
}

func (h *Handler) toAskResponse(requestID string, resp *agent.Response) askResponse {
	out := askResponse{
		RequestID:   requestID,
		Query:       resp.Query,
		Kind:        resp.Decision.Kind(),
		Tickers:     resp.Tickers(),
		Answer:      resp.Answer,
		AnswerError: toErrorBody(resp.AnswerErr),
		Fallback:    resp.Fallback,
	}
	for _, r := range resp.Results {
		body := tickerBody{
			Ticker:       r.Ticker,
			Snapshot:     r.Snapshot,
			Insight:      r.Insight,
			Error:        toErrorBody(r.Err),
			InsightError: toErrorBody(r.InsightErr),
		}
		if r.ChartPath != "" && h.chartDir != "" {
			body.ChartURL = "/charts/" + filepath.Base(r.ChartPath)
		}
		out.Results = append(out.Results, body)
	}
	return out
}

func toErrorBody(err error) *errorBody {
	if err == nil {
		return nil
	}
	return &errorBody{Kind: apperr.KindOf(err), Message: apperr.UserMessage(err)}
}

func tickersOf(d router.Decision) []string {
	if lookup, ok := d.(router.StockLookup); ok {
		return lookup.Tickers
	}
	return nil
}

// handleError logs err and sends the user-facing message.
func (h *Handler) handleError(c *gin.Context, status int, err error, userMessage string) {
	requestID := c.GetString(RequestIDContextKey)
	logger := logging.FromContext(c.Request.Context())
	logger.Warn().
		Str("path", c.Request.URL.Path).
		Int("status", status).
		Str("error", logging.Redact(err.Error())).
		Msg("api error")

	c.JSON(status, gin.H{
		"error":      userMessage,
		"kind":       apperr.KindOf(err),
		"request_id": requestID,
	})
}
