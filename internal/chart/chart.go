// Package chart draws the one-month price chart for a snapshot.
package chart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyike/StockAgent/internal/models"
	gochart "github.com/wcharczuk/go-chart/v2"
)

// ErrNotEnoughData means the series is too short to plot.
var ErrNotEnoughData = errors.New("not enough price data to plot")

type Renderer struct {
	dir    string
	width  int
	height int
}

func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir, width: 800, height: 400}
}

// Title is the chart heading for ticker.
func Title(ticker string) string {
	return ticker + " — 1 Month Trend"
}

// FileName is the file the chart for ticker is written to.
func FileName(ticker string) string {
	return ticker + "_plot.png"
}

// Render writes <dir>/<TICKER>_plot.png and returns its path. The file is
// replaced atomically so concurrent requests never read a partial image.
func (r *Renderer) Render(snap *models.Snapshot) (string, error) {
	if snap == nil || len(snap.Series) < 2 {
		return "", ErrNotEnoughData
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}

	xs := make([]time.Time, len(snap.Series))
	for i, p := range snap.Series {
		xs[i] = p.Date
	}

	graph := gochart.Chart{
		Title:  Title(snap.Ticker),
		Width:  r.width,
		Height: r.height,
		XAxis: gochart.XAxis{
			Name:           "Date",
			ValueFormatter: gochart.TimeDateValueFormatter,
		},
		YAxis: gochart.YAxis{
			Name: "Close Price",
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    snap.Ticker,
				XValues: xs,
				YValues: snap.Closes(),
				Style: gochart.Style{
					StrokeWidth: 2,
					DotWidth:    3,
				},
			},
		},
	}

	tmp, err := os.CreateTemp(r.dir, "chart-*.png")
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	if err := graph.Render(gochart.PNG, tmp); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("render chart for %s: %w", snap.Ticker, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close chart file: %w", err)
	}

	path := filepath.Join(r.dir, FileName(snap.Ticker))
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("save chart: %w", err)
	}
	return path, nil
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values as a single line of block characters for the
// terminal.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var b strings.Builder
	span := hi - lo
	for _, v := range values {
		idx := 0
		if span > 0 {
			idx = int((v - lo) / span * float64(len(sparkBlocks)-1))
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}
