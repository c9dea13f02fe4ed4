package dataflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyike/StockAgent/internal/models"
	"github.com/go-resty/resty/v2"
)

const yahooRSSURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"

// YahooHeadlines reads the Yahoo Finance RSS feed for a ticker.
type YahooHeadlines struct {
	client *resty.Client
	feed   string
}

func NewYahooHeadlines(feedURL string, timeout time.Duration) *YahooHeadlines {
	if feedURL == "" {
		feedURL = yahooRSSURL
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; StockAgent/1.0)")
	return &YahooHeadlines{client: client, feed: feedURL}
}

func (yh *YahooHeadlines) Headlines(ctx context.Context, ticker string, limit int) (items []models.Headline, err error) {
	symbol := NormalizeSymbol(ticker)
	if limit <= 0 {
		limit = 5
	}

	start := time.Now()
	defer func() { timed(ctx, "yahoo-rss", "headlines", start, err) }()

	resp, err := yh.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"s":      symbol,
			"region": "US",
			"lang":   "en-US",
		}).
		Get(yh.feed)
	if err != nil {
		return nil, classifyTransport("yahoo-rss", fmt.Errorf("fetch headlines for %s: %w", symbol, err))
	}
	if resp.StatusCode() != 200 {
		return nil, classifyStatus("yahoo-rss", resp.StatusCode(), resp.String())
	}

	return parseRSS(resp.String(), limit)
}

// The HTML parser treats <link> and <source> as void elements and drops
// CDATA, so they are rewritten before the feed is handed to goquery.
var rssRewriter = strings.NewReplacer(
	"<link>", "<feedlink>",
	"</link>", "</feedlink>",
	"<source", "<feedsource",
	"</source>", "</feedsource>",
	"<![CDATA[", "",
	"]]>", "",
)

func parseRSS(body string, limit int) ([]models.Headline, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rssRewriter.Replace(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	var out []models.Headline
	doc.Find("item").EachWithBreak(func(i int, s *goquery.Selection) bool {
		title := strings.TrimSpace(s.Find("title").Text())
		if title == "" {
			return true
		}
		h := models.Headline{
			Title:  title,
			URL:    strings.TrimSpace(s.Find("feedlink").Text()),
			Source: strings.TrimSpace(s.Find("feedsource").Text()),
		}
		if pub := strings.TrimSpace(s.Find("pubdate").Text()); pub != "" {
			if t, err := time.Parse(time.RFC1123Z, pub); err == nil {
				h.PublishedAt = t
			} else if t, err := time.Parse(time.RFC1123, pub); err == nil {
				h.PublishedAt = t
			}
		}
		out = append(out, h)
		return len(out) < limit
	})
	return out, nil
}
