package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/dyike/StockAgent/internal/models"
)

// NoTrendData is returned instead of an insight when there is no history.
const NoTrendData = "No trend data available."

const trendText = `Analyze the last 1-month price movement of {ticker}.

Start Price: {start_price}
End Price: {end_price}
Percentage Change: {percent_change}%

Explain the trend in simple words (no financial advice).`

var (
	// general questions go to the model verbatim
	questionTemplate = prompt.FromMessages(schema.FString, schema.UserMessage("{prompt}"))
	trendTemplate    = prompt.FromMessages(schema.FString, schema.UserMessage(trendText))
)

// TrendPrompt renders the trend-summary prompt for snap. ok is false when the
// snapshot has no price series.
func TrendPrompt(ctx context.Context, snap *models.Snapshot) (text string, ok bool, err error) {
	if !snap.HasSeries() || snap.StartClose().IsZero() {
		return "", false, nil
	}
	msgs, err := trendTemplate.Format(ctx, map[string]any{
		"ticker":         snap.Ticker,
		"start_price":    snap.StartClose().StringFixed(2),
		"end_price":      snap.EndClose().StringFixed(2),
		"percent_change": snap.PercentChange().StringFixed(2),
	})
	if err != nil {
		return "", false, fmt.Errorf("format trend prompt: %w", err)
	}
	if len(msgs) == 0 {
		return "", false, fmt.Errorf("format trend prompt: no messages")
	}
	return msgs[0].Content, true, nil
}
