package llm

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	ecmodel "github.com/cloudwego/eino/components/model"
	"github.com/dyike/StockAgent/internal/logging"
)

// newLogHandler reports chain progress and token usage at debug level.
// Prompts and answers are not logged.
func newLogHandler() callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
			logger := logging.FromContext(ctx)
			logger.Debug().
				Str("node", nodeName(info)).
				Msg("llm step started")
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			logger := logging.FromContext(ctx)
			event := logger.Debug().Str("node", nodeName(info))
			if info != nil && info.Component == components.ComponentOfChatModel {
				if out := ecmodel.ConvCallbackOutput(output); out != nil && out.TokenUsage != nil {
					event = event.
						Int("prompt_tokens", out.TokenUsage.PromptTokens).
						Int("completion_tokens", out.TokenUsage.CompletionTokens)
				}
			}
			event.Msg("llm step finished")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			logger := logging.FromContext(ctx)
			logger.Warn().
				Str("node", nodeName(info)).
				Str("error", logging.Redact(err.Error())).
				Msg("llm step failed")
			return ctx
		}).
		Build()
}

func nodeName(info *callbacks.RunInfo) string {
	if info == nil {
		return ""
	}
	if info.Name != "" {
		return info.Name
	}
	return string(info.Component)
}
