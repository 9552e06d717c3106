package indicators

import (
	"fmt"

	"cryptoSpotBot/internal/domain"
)

// Standard periods for the strategy's indicator columns.
const (
	emaFastPeriod  = 7
	emaSlowPeriod  = 25
	emaTrendPeriod = 50
	emaLongPeriod  = 100
	macdFastPeriod = 12
	macdSlowPeriod = 26
	macdSignalSpan = 9
	rsiPeriod      = 14
)

// Series holds the per-bar indicator columns computed from one candle
// series. Indexes align with the input klines, most-recent-last.
type Series struct {
	Close      []float64
	EMA7       []float64
	EMA25      []float64
	EMA50      []float64
	EMA100     []float64
	MACDLine   []float64
	SignalLine []float64
	Histogram  []float64
	RSI        []float64
	ROI        []float64
}

// Values is the latest bar of every column, exposed for monitoring.
type Values struct {
	EMA7   float64
	EMA25  float64
	EMA50  float64
	EMA100 float64
	MACD   float64
	Signal float64
	RSI    float64
	ROI    float64
}

// Compute derives all indicator columns from an ordered candle series.
// It is a pure function: no state is carried between calls, so recomputing
// over a wholesale-refreshed window is deterministic.
func Compute(klines []*domain.Kline) (*Series, error) {
	if len(klines) == 0 {
		return nil, fmt.Errorf("cannot compute indicators on an empty candle series")
	}
	closes := domain.Closes(klines)

	s := &Series{
		Close:  closes,
		EMA7:   ema(closes, emaFastPeriod),
		EMA25:  ema(closes, emaSlowPeriod),
		EMA50:  ema(closes, emaTrendPeriod),
		EMA100: ema(closes, emaLongPeriod),
		RSI:    rsi(closes, rsiPeriod),
		ROI:    roi(closes),
	}

	emaFast := ema(closes, macdFastPeriod)
	emaSlow := ema(closes, macdSlowPeriod)
	s.MACDLine = make([]float64, len(closes))
	for i := range closes {
		s.MACDLine[i] = emaFast[i] - emaSlow[i]
	}
	s.SignalLine = ema(s.MACDLine, macdSignalSpan)
	s.Histogram = make([]float64, len(closes))
	for i := range closes {
		s.Histogram[i] = s.MACDLine[i] - s.SignalLine[i]
	}

	return s, nil
}

// Latest returns the most recent bar of every column.
func (s *Series) Latest() Values {
	last := len(s.Close) - 1
	return Values{
		EMA7:   s.EMA7[last],
		EMA25:  s.EMA25[last],
		EMA50:  s.EMA50[last],
		EMA100: s.EMA100[last],
		MACD:   s.MACDLine[last],
		Signal: s.SignalLine[last],
		RSI:    s.RSI[last],
		ROI:    s.ROI[last],
	}
}

// ema computes the recursive exponential moving average with
// alpha = 2/(span+1), seeded with the first value. No finite-sample bias
// adjustment is applied.
func ema(values []float64, span int) []float64 {
	alpha := 2.0 / float64(span+1)
	return ewm(values, alpha)
}

// ewm applies recursive exponential smoothing with the given alpha.
func ewm(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// rsi computes the Relative Strength Index with average gain and loss each
// exponentially smoothed (alpha = 1/period) over up-moves and down-moves,
// losses as positive magnitudes.
//
// Edge cases: the first bar has no price move and is reported as neutral 50.
// When the average loss is zero the ratio is undefined; the result saturates
// at 100 if there were gains, 50 if the series has not moved at all.
func rsi(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	out[0] = 50

	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		if i == 1 {
			avgGain = gain
			avgLoss = loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}

		switch {
		case avgLoss == 0 && avgGain == 0:
			out[i] = 50
		case avgLoss == 0:
			out[i] = 100
		default:
			rs := avgGain / avgLoss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// roi computes the cumulative return on investment:
// product of (1 + period return) - 1.
func roi(closes []float64) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	cum := 1.0
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			cum *= 1 + (closes[i]-closes[i-1])/closes[i-1]
		}
		out[i] = cum - 1
	}
	return out
}
