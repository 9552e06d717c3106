package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSpotBot/internal/domain"
)

// seriesFromConditions builds a Series whose bars satisfy the requested
// buy/sell conditions. 'b' forces the buy condition, 's' the sell condition,
// anything else neither.
func seriesFromConditions(pattern string) *Series {
	n := len(pattern)
	s := &Series{
		Close:      make([]float64, n),
		EMA7:       make([]float64, n),
		EMA25:      make([]float64, n),
		MACDLine:   make([]float64, n),
		SignalLine: make([]float64, n),
	}
	for i, c := range pattern {
		switch c {
		case 'b': // EMA7 < EMA25 and MACD above its signal line
			s.EMA7[i], s.EMA25[i] = 1, 2
			s.MACDLine[i], s.SignalLine[i] = 1, 0
		case 's': // EMA7 > EMA25 and MACD below its signal line
			s.EMA7[i], s.EMA25[i] = 2, 1
			s.MACDLine[i], s.SignalLine[i] = -1, 0
		default: // neither condition holds
			s.EMA7[i], s.EMA25[i] = 1, 2
			s.MACDLine[i], s.SignalLine[i] = -1, 0
		}
	}
	return s
}

func TestSignals_StickyFirstCrossing(t *testing.T) {
	// Buy condition sequence [F,F,T,T,T,F,F,T]: the signal must transition
	// to Buy exactly once at the first T and remain Buy throughout,
	// including across the F gap and the later re-entry into T.
	s := seriesFromConditions("..bbb..b")
	got := Signals(s)

	want := []domain.Signal{
		domain.SignalHold, domain.SignalHold,
		domain.SignalBuy, domain.SignalBuy, domain.SignalBuy,
		domain.SignalBuy, domain.SignalBuy, domain.SignalBuy,
	}
	assert.Equal(t, want, got)
}

func TestSignals_OppositeCrossingFlips(t *testing.T) {
	s := seriesFromConditions("..bb.ss.b")
	got := Signals(s)

	want := []domain.Signal{
		domain.SignalHold, domain.SignalHold,
		domain.SignalBuy, domain.SignalBuy, domain.SignalBuy,
		domain.SignalSell, domain.SignalSell, domain.SignalSell,
		domain.SignalBuy,
	}
	assert.Equal(t, want, got)
}

func TestSignals_FirstBarCanFire(t *testing.T) {
	got := Signals(seriesFromConditions("b.."))
	assert.Equal(t, domain.SignalBuy, got[0])
	assert.Equal(t, domain.SignalBuy, got[2], "signal persists with no new event")
}

func TestSignals_HoldBeforeAnyCrossing(t *testing.T) {
	got := Signals(seriesFromConditions("...."))
	for i, sig := range got {
		assert.Equal(t, domain.SignalHold, sig, "index %d", i)
	}
}

func TestSignals_ContinuedConditionDoesNotRefire(t *testing.T) {
	// A condition that stays true fires only on its first bar; the later
	// bars carry the value forward rather than emitting new events.
	s := seriesFromConditions("bbbbb")
	got := Signals(s)
	require.NotEmpty(t, got)
	for i, sig := range got {
		assert.Equal(t, domain.SignalBuy, sig, "index %d", i)
	}
}

func TestLatestSignal(t *testing.T) {
	assert.Equal(t, domain.SignalHold, LatestSignal(&Series{}))
	assert.Equal(t, domain.SignalSell, LatestSignal(seriesFromConditions("..bb.s")))
}
