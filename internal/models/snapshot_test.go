package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func series(closes ...string) []PricePoint {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	out := make([]PricePoint, len(closes))
	for i, c := range closes {
		out[i] = PricePoint{Date: start.AddDate(0, 0, i), Close: decimal.RequireFromString(c)}
	}
	return out
}

func TestSnapshotTrend(t *testing.T) {
	s := &Snapshot{Ticker: "TSLA", Series: series("200", "210", "250")}

	assert.True(t, s.HasSeries())
	assert.Equal(t, "200", s.StartClose().String())
	assert.Equal(t, "250", s.EndClose().String())
	assert.Equal(t, "25", s.PercentChange().String())
	assert.Equal(t, []float64{200, 210, 250}, s.Closes())
}

func TestSnapshotWithoutSeries(t *testing.T) {
	s := &Snapshot{Ticker: "TSLA"}
	assert.False(t, s.HasSeries())
	assert.True(t, s.PercentChange().IsZero())

	var nilSnap *Snapshot
	assert.False(t, nilSnap.HasSeries())
}

func TestFormatMarketCap(t *testing.T) {
	assert.Equal(t, "N/A", FormatMarketCap(0))
	assert.Equal(t, "$772.43B", FormatMarketCap(772_430_000_000))
	assert.Equal(t, "N/A", OrNA(""))
	assert.Equal(t, "Tesla", OrNA("Tesla"))
}
