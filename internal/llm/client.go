// Package llm talks to the hosted chat model through an eino chain.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	ecmodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/dyike/StockAgent/config"
	apperr "github.com/dyike/StockAgent/internal/errors"
	"github.com/dyike/StockAgent/internal/models"
)

// Completer answers a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client runs prompts through a template -> chat model chain.
type Client struct {
	provider string
	model    string
	keyEnv   string
	hasKey   bool
	chain    compose.Runnable[map[string]any, *schema.Message]
	handler  callbacks.Handler
}

// NewChatModel builds the eino chat model for the configured provider.
// Mistral and OpenAI share the OpenAI-compatible client.
func NewChatModel(ctx context.Context, cfg *config.Config) (ecmodel.BaseChatModel, error) {
	timeout := cfg.RequestTimeout.Std()
	switch cfg.LLMProvider {
	case config.ProviderDeepSeek:
		return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    cfg.LLMAPIKey(),
			Model:     cfg.LLMModel,
			BaseURL:   cfg.LLMBaseURL,
			MaxTokens: cfg.LLMMaxTokens,
			Timeout:   timeout,
		})
	default:
		var maxTokens *int
		if cfg.LLMMaxTokens > 0 {
			mt := cfg.LLMMaxTokens
			maxTokens = &mt
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   cfg.LLMBaseURL,
			APIKey:    cfg.LLMAPIKey(),
			Model:     cfg.LLMModel,
			MaxTokens: maxTokens,
			Timeout:   timeout,
		})
	}
}

// New creates a Client for cfg. A missing API key is not an error here;
// calls fail with ErrAuth until one is configured.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	cm, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s chat model: %w", cfg.LLMProvider, err)
	}
	c, err := NewWithModel(ctx, cm, cfg.LLMProvider, cfg.LLMModel)
	if err != nil {
		return nil, err
	}
	c.keyEnv = cfg.LLMKeyEnv()
	c.hasKey = cfg.LLMAPIKey() != ""
	return c, nil
}

// NewWithModel compiles the chain around an existing chat model.
func NewWithModel(ctx context.Context, cm ecmodel.BaseChatModel, provider, model string) (*Client, error) {
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.
		AppendChatTemplate(questionTemplate, compose.WithNodeName("prompt")).
		AppendChatModel(cm, compose.WithNodeName(provider))

	runnable, err := chain.Compile(ctx, compose.WithGraphName("stockagent_llm"))
	if err != nil {
		return nil, fmt.Errorf("compile llm chain: %w", err)
	}
	return &Client{
		provider: provider,
		model:    model,
		hasKey:   true,
		chain:    runnable,
		handler:  newLogHandler(),
	}, nil
}

func (c *Client) Provider() string { return c.provider }
func (c *Client) Model() string    { return c.model }

// Complete sends prompt as a single user message and returns the answer.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.hasKey {
		return "", apperr.NewModelError(c.provider, &apperr.MissingKeyError{Env: c.keyEnv})
	}

	msg, err := c.chain.Invoke(ctx, map[string]any{"prompt": prompt}, compose.WithCallbacks(c.handler))
	if err != nil {
		return "", classify(c.provider, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", apperr.NewModelError(c.provider, fmt.Errorf("%w: empty completion", apperr.ErrProviderUnavailable))
	}
	return strings.TrimSpace(msg.Content), nil
}

// ExplainTrend asks the model to describe the one-month move of snap.
func ExplainTrend(ctx context.Context, c Completer, snap *models.Snapshot) (string, error) {
	text, ok, err := TrendPrompt(ctx, snap)
	if err != nil {
		return "", err
	}
	if !ok {
		return NoTrendData, nil
	}
	return c.Complete(ctx, text)
}

// classify maps a chain error onto the taxonomy. The model SDKs only expose
// HTTP status codes inside the error text.
func classify(provider string, err error) error {
	switch {
	case apperr.ContainsStatus(err, "401", "403"):
		return apperr.NewModelError(provider, fmt.Errorf("%w: %v", apperr.ErrAuth, err))
	case apperr.ContainsStatus(err, "429"):
		return apperr.NewModelError(provider, fmt.Errorf("%w: %v", apperr.ErrRateLimited, err))
	default:
		return apperr.NewModelError(provider, fmt.Errorf("%w: %v", apperr.ErrProviderUnavailable, err))
	}
}
