package display

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyike/StockAgent/internal/agent"
	"github.com/dyike/StockAgent/internal/chart"
	apperr "github.com/dyike/StockAgent/internal/errors"
	"github.com/dyike/StockAgent/internal/models"
)

// Markdown renders resp as a markdown report.
func Markdown(resp *agent.Response, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", resp.Query)
	fmt.Fprintf(&b, "_Generated %s_\n\n", now.UTC().Format(time.RFC3339))

	for _, r := range resp.Results {
		fmt.Fprintf(&b, "## %s\n\n", r.Ticker)
		if !r.OK() {
			fmt.Fprintf(&b, "> %s\n\n", apperr.UserMessage(r.Err))
			continue
		}
		snap := r.Snapshot
		fmt.Fprintf(&b, "- Current price: %s\n", FormatPrice(snap))
		fmt.Fprintf(&b, "- Company: %s\n", models.OrNA(snap.Profile.Name))
		fmt.Fprintf(&b, "- Sector: %s\n", models.OrNA(snap.Profile.Sector))
		fmt.Fprintf(&b, "- Industry: %s\n", models.OrNA(snap.Profile.Industry))
		fmt.Fprintf(&b, "- Market Cap: %s\n", models.FormatMarketCap(snap.Profile.MarketCap))
		if snap.HasSeries() {
			fmt.Fprintf(&b, "- 1M change: %s%%\n", snap.PercentChange().StringFixed(2))
		}
		b.WriteString("\n")
		if r.ChartPath != "" {
			fmt.Fprintf(&b, "![%s](%s)\n\n", chart.Title(r.Ticker), r.ChartPath)
		}
		for _, h := range snap.Headlines {
			fmt.Fprintf(&b, "- [%s](%s)\n", h.Title, h.URL)
		}
		if len(snap.Headlines) > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### AI Insight\n\n")
		if r.InsightErr != nil {
			fmt.Fprintf(&b, "> %s\n\n", apperr.UserMessage(r.InsightErr))
		} else {
			fmt.Fprintf(&b, "%s\n\n", r.Insight)
		}
	}

	switch {
	case resp.AnswerErr != nil:
		fmt.Fprintf(&b, "> %s\n", apperr.UserMessage(resp.AnswerErr))
	case resp.Answer != "":
		fmt.Fprintf(&b, "%s\n", resp.Answer)
	}
	return b.String()
}

// WriteMarkdown writes content to dir/fileName and returns the full path.
func WriteMarkdown(dir, fileName, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return path, nil
}

// ReportFileName names a report after its tickers, or "answer".
func ReportFileName(resp *agent.Response, now time.Time) string {
	subject := "answer"
	if tickers := resp.Tickers(); len(tickers) > 0 {
		subject = strings.Join(tickers, "_")
	}
	return fmt.Sprintf("%s_%s.md", subject, now.Format("20060102_150405"))
}
