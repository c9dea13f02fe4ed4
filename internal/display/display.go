// Package display renders agent responses for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dyike/StockAgent/internal/agent"
	"github.com/dyike/StockAgent/internal/chart"
	apperr "github.com/dyike/StockAgent/internal/errors"
	"github.com/dyike/StockAgent/internal/models"
	"github.com/dyike/StockAgent/internal/storage"
)

const wrapWidth = 80

var (
	tickerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	priceStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	insightStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 1).
			Width(wrapWidth)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Italic(true)
)

// Printer writes rendered output to w.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Response renders resp: one block per ticker or the general answer.
func (p *Printer) Response(resp *agent.Response) {
	if resp == nil {
		return
	}
	if tickers := resp.Tickers(); len(tickers) > 0 {
		fmt.Fprintf(p.w, "%s %s\n\n", labelStyle.Render("Detected tickers:"), tickerStyle.Render(strings.Join(tickers, ", ")))
		for _, r := range resp.Results {
			p.Ticker(r)
		}
	}

	if resp.Fallback {
		fmt.Fprintln(p.w, mutedStyle.Render("No market data found, answering as a general question."))
	}
	if resp.Answer != "" || resp.AnswerErr != nil {
		p.Answer(resp.Answer, resp.AnswerErr)
	}
}

// Ticker renders one ticker block.
func (p *Printer) Ticker(r agent.TickerResult) {
	if !r.OK() {
		p.Error(r.Err)
		fmt.Fprintln(p.w)
		return
	}
	snap := r.Snapshot

	fmt.Fprintf(p.w, "%s %s\n", labelStyle.Render("Current price of "+r.Ticker+":"), priceStyle.Render(FormatPrice(snap)))
	p.company(snap.Profile)

	if r.ChartPath != "" {
		fmt.Fprintf(p.w, "%s %s\n", labelStyle.Render(chart.Title(r.Ticker)+":"), r.ChartPath)
	}
	if spark := chart.Sparkline(snap.Closes()); spark != "" {
		fmt.Fprintf(p.w, "%s %s %s%%\n", labelStyle.Render("1M:"), spark, snap.PercentChange().StringFixed(2))
	}
	if len(snap.Headlines) > 0 {
		fmt.Fprintln(p.w, labelStyle.Render("Headlines:"))
		for _, h := range snap.Headlines {
			fmt.Fprintf(p.w, "  • %s\n", h.Title)
		}
	}

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, tickerStyle.Render("AI Insight for "+r.Ticker+":"))
	if r.InsightErr != nil {
		p.Error(r.InsightErr)
	} else {
		fmt.Fprintln(p.w, insightStyle.Render(r.Insight))
	}
	fmt.Fprintln(p.w)
}

func (p *Printer) company(profile models.CompanyProfile) {
	fmt.Fprintf(p.w, "%s %s\n", labelStyle.Render("Company:"), models.OrNA(profile.Name))
	fmt.Fprintf(p.w, "%s %s\n", labelStyle.Render("Sector:"), models.OrNA(profile.Sector))
	fmt.Fprintf(p.w, "%s %s\n", labelStyle.Render("Industry:"), models.OrNA(profile.Industry))
	fmt.Fprintf(p.w, "%s %s\n", labelStyle.Render("Market Cap:"), models.FormatMarketCap(profile.MarketCap))
	if profile.Website != "" {
		fmt.Fprintf(p.w, "%s %s\n", labelStyle.Render("Website:"), profile.Website)
	}
}

// Answer renders a general answer, or the error that replaced it.
func (p *Printer) Answer(answer string, err error) {
	if err != nil {
		p.Error(err)
		return
	}
	fmt.Fprintln(p.w, lipgloss.NewStyle().Width(wrapWidth).Render(answer))
}

func (p *Printer) Error(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(p.w, errorStyle.Render("✗ "+apperr.UserMessage(err)))
}

func (p *Printer) Warning(msg string) {
	fmt.Fprintln(p.w, warningStyle.Render("! "+msg))
}

func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, mutedStyle.Render(msg))
}

// History lists saved queries, newest first.
func (p *Printer) History(entries []storage.Entry) {
	if len(entries) == 0 {
		p.Info("No saved queries.")
		return
	}
	for i, e := range entries {
		fmt.Fprintf(p.w, "%2d. %s %s\n", i+1, e.Query, labelStyle.Render("("+e.Kind+", "+e.CreatedAt.Local().Format("2006-01-02 15:04")+")"))
	}
}

// FormatPrice renders the last price with a currency sign for USD.
func FormatPrice(snap *models.Snapshot) string {
	price := snap.Price.StringFixed(2)
	switch snap.Currency {
	case "", "USD":
		return "$" + price
	default:
		return price + " " + snap.Currency
	}
}
