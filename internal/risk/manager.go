// Package risk evaluates the stop-loss and take-profit exits for an open
// position. Risk exits run before the strategy's signal check each cycle, so
// they take priority over strategy exits.
package risk

import (
	"context"
	"fmt"

	"cryptoSpotBot/internal/domain"
	"cryptoSpotBot/internal/ports"
)

// Config holds the risk thresholds, both expressed in percent (1.0 = 1%).
type Config struct {
	StopLossPct   float64
	TakeProfitPct float64
}

// Manager decides whether the current price movement breaches the configured
// stop-loss or take-profit thresholds.
type Manager struct {
	cfg    Config
	logger ports.Logger
}

// New creates a risk manager instance.
func New(cfg Config, logger ports.Logger) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for risk manager")
	}
	if cfg.StopLossPct <= 0 {
		return nil, fmt.Errorf("stop-loss percentage must be positive")
	}
	if cfg.TakeProfitPct <= 0 {
		return nil, fmt.Errorf("take-profit percentage must be positive")
	}
	return &Manager{cfg: cfg, logger: logger}, nil
}

// Assess checks the percentage change between the two most recent candle
// closes against the thresholds. It is only meaningful while a position is
// open; the caller gates on that. With fewer than two candles there is
// nothing to compare and no exit is triggered.
func (m *Manager) Assess(ctx context.Context, klines []*domain.Kline) (bool, domain.ExitReason) {
	if len(klines) < 2 {
		return false, ""
	}
	previous := klines[len(klines)-2].Close
	latest := klines[len(klines)-1].Close
	if previous == 0 {
		return false, ""
	}

	change := (latest - previous) / previous * 100

	if change <= -m.cfg.StopLossPct {
		m.logger.Info(ctx, "Stop loss breached", map[string]interface{}{
			"priceChangePct": change,
			"stopLossPct":    m.cfg.StopLossPct,
			"previousClose":  previous,
			"latestClose":    latest,
		})
		return true, domain.ExitStopLoss
	}
	if change >= m.cfg.TakeProfitPct {
		m.logger.Info(ctx, "Take profit breached", map[string]interface{}{
			"priceChangePct": change,
			"takeProfitPct":  m.cfg.TakeProfitPct,
			"previousClose":  previous,
			"latestClose":    latest,
		})
		return true, domain.ExitTakeProfit
	}
	return false, ""
}
