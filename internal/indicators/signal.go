package indicators

import "cryptoSpotBot/internal/domain"

// Signals derives the sticky trade signal column from a computed series.
//
// Buy condition: EMA7 below EMA25 while the MACD line is above its signal
// line. Sell condition: the mirror image. An event fires only on the bar
// where the condition becomes true having been false on the previous bar
// (first-crossing detection); the very first bar fires if its condition
// already holds. A fired value then propagates forward across bars with no
// new event until the opposite event fires. Before any event the signal is
// Hold.
func Signals(s *Series) []domain.Signal {
	n := len(s.Close)
	out := make([]domain.Signal, n)
	if n == 0 {
		return out
	}

	buyCond := make([]bool, n)
	sellCond := make([]bool, n)
	for i := 0; i < n; i++ {
		buyCond[i] = s.EMA7[i] < s.EMA25[i] && s.MACDLine[i] > s.SignalLine[i]
		sellCond[i] = s.EMA7[i] > s.EMA25[i] && s.MACDLine[i] < s.SignalLine[i]
	}

	current := domain.SignalHold
	for i := 0; i < n; i++ {
		prevBuy, prevSell := false, false
		if i > 0 {
			prevBuy = buyCond[i-1]
			prevSell = sellCond[i-1]
		}
		switch {
		case buyCond[i] && !prevBuy:
			current = domain.SignalBuy
		case sellCond[i] && !prevSell:
			current = domain.SignalSell
		}
		out[i] = current
	}
	return out
}

// LatestSignal is the sticky signal at the most recent bar, Hold for an
// empty series.
func LatestSignal(s *Series) domain.Signal {
	sigs := Signals(s)
	if len(sigs) == 0 {
		return domain.SignalHold
	}
	return sigs[len(sigs)-1]
}
