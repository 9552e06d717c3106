package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSpotBot/internal/domain"
)

// klinesFromCloses builds a minimal candle series for indicator tests.
func klinesFromCloses(closes []float64) []*domain.Kline {
	klines := make([]*domain.Kline, len(closes))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		klines[i] = &domain.Kline{
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
			Symbol:    "BTCUSDC",
			Interval:  "1h",
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
		}
	}
	return klines
}

func TestCompute_EmptySeries(t *testing.T) {
	_, err := Compute(nil)
	require.Error(t, err)
}

func TestCompute_EMARecursive(t *testing.T) {
	// span 3 => alpha 0.5; hand-computed recursion seeded with the first close
	values := []float64{1, 2, 3, 4, 5}
	got := ema(values, 3)
	want := []float64{1, 1.5, 2.25, 3.125, 4.0625}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12, "index %d", i)
	}
}

func TestCompute_MACDHistogramConsistency(t *testing.T) {
	closes := []float64{100, 102, 101, 105, 107, 103, 104, 110, 108, 112}
	s, err := Compute(klinesFromCloses(closes))
	require.NoError(t, err)

	for i := range closes {
		assert.InDelta(t, s.MACDLine[i]-s.SignalLine[i], s.Histogram[i], 1e-12)
	}
}

func TestRSI_EdgeCases(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{name: "only gains saturates at 100", closes: []float64{1, 2, 3, 4, 5}, want: 100},
		{name: "flat series is neutral", closes: []float64{5, 5, 5, 5}, want: 50},
		{name: "only losses bottoms at 0", closes: []float64{5, 4, 3, 2, 1}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rsi(tt.closes, 14)
			assert.InDelta(t, tt.want, got[len(got)-1], 1e-9)
		})
	}
}

func TestRSI_FirstBarNeutral(t *testing.T) {
	got := rsi([]float64{100, 105, 103}, 14)
	assert.Equal(t, 50.0, got[0])
}

func TestRSI_WithinBounds(t *testing.T) {
	closes := []float64{100, 101, 99, 103, 102, 108, 104, 104, 107, 101, 109, 110, 95, 99, 103, 104}
	got := rsi(closes, 14)
	for i, v := range got {
		assert.GreaterOrEqual(t, v, 0.0, "index %d", i)
		assert.LessOrEqual(t, v, 100.0, "index %d", i)
	}
}

func TestROI_Cumulative(t *testing.T) {
	// 100 -> 110 is +10%, 110 -> 99 is -10%: cumulative (1.1 * 0.9) - 1
	got := roi([]float64{100, 110, 99})
	require.Len(t, got, 3)
	assert.InDelta(t, 0.0, got[0], 1e-12)
	assert.InDelta(t, 0.10, got[1], 1e-12)
	assert.InDelta(t, -0.01, got[2], 1e-12)
}

func TestCompute_Deterministic(t *testing.T) {
	closes := []float64{100, 102, 101, 105, 107, 103, 104, 110, 108, 112, 111, 109}
	klines := klinesFromCloses(closes)

	first, err := Compute(klines)
	require.NoError(t, err)
	second, err := Compute(klines)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, Signals(first), Signals(second))
}
