package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cryptoSpotBot/config"
	"cryptoSpotBot/internal/domain"
	"cryptoSpotBot/internal/indicators"
	"cryptoSpotBot/internal/monitor"
	"cryptoSpotBot/internal/ports"
	"cryptoSpotBot/internal/retry"
	"cryptoSpotBot/internal/risk"
	"cryptoSpotBot/internal/sizing"
)

// Service drives the trading loop for a single spot pair. It owns the
// position state machine (flat or long), turns signal transitions into
// market orders and reconciles local state against the exchange every cycle.
type Service struct {
	cfg      *config.Config
	logger   ports.Logger
	exchange ports.ExchangeClient
	orders   ports.OrderRepository
	retrier  *retry.Policy
	risk     *risk.Manager
	monitor  *monitor.Monitor

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// Position state. tentative is set after a locally observed fill and
	// cleared by the next successful account refresh; while set, no further
	// orders are placed for the pair.
	position  domain.PositionState
	tentative bool

	baseFree  decimal.Decimal
	quoteFree decimal.Decimal

	rules *domain.SymbolRules // fetched once, cached for the process lifetime

	klines     []*domain.Kline
	series     *indicators.Series
	lastSignal domain.Signal
	lastOrder  *domain.Order
	lastPrice  float64

	// signalFn derives the acting signal from a computed series.
	// Swapped out in tests.
	signalFn func(*indicators.Series) domain.Signal
}

// New creates a trading service. All dependencies are required.
func New(
	cfg *config.Config,
	exchange ports.ExchangeClient,
	orders ports.OrderRepository,
	retrier *retry.Policy,
	riskMgr *risk.Manager,
	mon *monitor.Monitor,
	logger ports.Logger,
) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if exchange == nil {
		return nil, errors.New("exchange client cannot be nil")
	}
	if orders == nil {
		return nil, errors.New("order repository cannot be nil")
	}
	if retrier == nil {
		return nil, errors.New("retry policy cannot be nil")
	}
	if riskMgr == nil {
		return nil, errors.New("risk manager cannot be nil")
	}
	if mon == nil {
		return nil, errors.New("monitor cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Service{
		cfg:      cfg,
		logger:   logger,
		exchange: exchange,
		orders:   orders,
		retrier:  retrier,
		risk:     riskMgr,
		monitor:  mon,
		position: domain.PositionFlat,
		signalFn: indicators.LatestSignal,
	}, nil
}

// Start launches the trading loop in a background goroutine. Calling Start
// on a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn(ctx, "Trading loop already running", nil)
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	s.logger.Info(ctx, "Starting trading loop", map[string]interface{}{
		"symbol":   s.cfg.TradingPair,
		"interval": s.cfg.CandleInterval,
	})

	go s.runLoop(ctx, stopCh, doneCh)
	return nil
}

// Stop halts the trading loop and waits for the current cycle to finish.
// If the bot holds a long position it is liquidated before Stop returns.
// Calling Stop on a stopped service is a no-op.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	s.logger.Info(ctx, "Stopping trading loop", nil)
	close(stopCh)

	select {
	case <-doneCh:
	case <-ctx.Done():
		return fmt.Errorf("waiting for trading loop shutdown: %w", ctx.Err())
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.logger.Info(ctx, "Trading loop stopped", nil)
	return nil
}

// Run starts the loop and blocks until ctx is cancelled, then performs an
// orderly shutdown. Intended for use from main.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	// Use a fresh context for shutdown; the run context is already done.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}

func (s *Service) runLoop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			s.shutdownLiquidate(ctx)
			return
		case <-ctx.Done():
			s.shutdownLiquidate(context.Background())
			return
		default:
		}

		if err := s.ExecuteCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ports.ErrContextCanceled) {
				continue // stop will be observed at the top of the loop
			}
			s.logger.Error(ctx, err, "Trading cycle failed", nil)
			monitor.RecordError("cycle")
			s.sleep(ctx, stopCh, s.cfg.ErrorCooldown)
			continue
		}
		s.sleep(ctx, stopCh, s.cfg.CycleInterval)
	}
}

// sleep pauses between cycles but wakes immediately on stop or cancellation.
func (s *Service) sleep(ctx context.Context, stopCh chan struct{}, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-stopCh:
	case <-ctx.Done():
	}
}

// shutdownLiquidate sells any held position on the way out so the bot never
// leaves an unmanaged long behind.
func (s *Service) shutdownLiquidate(ctx context.Context) {
	s.mu.Lock()
	long := s.position == domain.PositionLong
	s.mu.Unlock()
	if !long {
		return
	}
	s.logger.Info(ctx, "Liquidating position on shutdown", map[string]interface{}{
		"symbol": s.cfg.TradingPair,
	})
	if err := s.sell(ctx, domain.ExitShutdown); err != nil {
		s.logger.Error(ctx, err, "Failed to liquidate position on shutdown", map[string]interface{}{
			"symbol": s.cfg.TradingPair,
		})
	}
}

// ExecuteCycle runs a single trading cycle: refresh exchange state, compute
// indicators, apply risk checks and act on signal transitions.
func (s *Service) ExecuteCycle(ctx context.Context) error {
	monitor.RecordCycle()

	if err := s.refresh(ctx); err != nil {
		return fmt.Errorf("refreshing exchange state: %w", err)
	}

	s.mu.Lock()
	klines := s.klines
	s.mu.Unlock()

	series, err := indicators.Compute(klines)
	if err != nil {
		return fmt.Errorf("computing indicators: %w", err)
	}
	signal := s.signalFn(series)

	s.mu.Lock()
	s.series = series
	s.lastSignal = signal
	if n := len(klines); n > 0 {
		s.lastPrice = klines[n-1].Close
	}
	position := s.position
	price := s.lastPrice
	s.mu.Unlock()

	monitor.UpdatePrice(s.cfg.TradingPair, price)
	s.monitor.LogStatus(ctx, s.Status())

	// Risk exits take precedence over signals while long.
	if position == domain.PositionLong {
		breached, reason := s.risk.Assess(ctx, klines)
		if breached {
			if err := s.sell(ctx, reason); err != nil {
				s.logger.Error(ctx, err, "Risk exit failed", map[string]interface{}{
					"reason": string(reason),
				})
			}
			return nil
		}
	}

	switch {
	case position == domain.PositionFlat && signal == domain.SignalBuy:
		if err := s.buy(ctx); err != nil {
			s.logger.Error(ctx, err, "Buy failed", nil)
		}
	case position == domain.PositionLong && signal == domain.SignalSell:
		if err := s.sell(ctx, domain.ExitSignal); err != nil {
			s.logger.Error(ctx, err, "Sell failed", nil)
		}
	}
	return nil
}

// refresh pulls account balances and candles from the exchange and
// reconciles the position state. A successful refresh clears the tentative
// flag because the balances now reflect any fill that set it.
func (s *Service) refresh(ctx context.Context) error {
	if err := s.retrier.Do(ctx, "ping", s.exchange.Ping); err != nil {
		return err
	}

	var snapshot *domain.AccountSnapshot
	err := s.retrier.Do(ctx, "get account snapshot", func(ctx context.Context) error {
		var err error
		snapshot, err = s.exchange.GetAccountSnapshot(ctx)
		return err
	})
	if err != nil {
		return err
	}

	var klines []*domain.Kline
	err = s.retrier.Do(ctx, "get klines", func(ctx context.Context) error {
		var err error
		klines, err = s.exchange.GetKlines(ctx, s.cfg.TradingPair, s.cfg.CandleInterval, s.cfg.CandleLimit)
		return err
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.baseFree = snapshot.FreeBalance(s.cfg.BaseAsset)
	s.quoteFree = snapshot.FreeBalance(s.cfg.QuoteAsset)
	prev := s.position
	if s.baseFree.GreaterThan(s.cfg.DustThreshold) {
		s.position = domain.PositionLong
	} else {
		s.position = domain.PositionFlat
	}
	s.tentative = false
	s.klines = klines
	position := s.position
	s.mu.Unlock()

	if position != prev {
		s.logger.Info(ctx, "Position state reconciled", map[string]interface{}{
			"previous": string(prev),
			"current":  string(position),
		})
	}
	monitor.UpdatePosition(s.cfg.TradingPair, position == domain.PositionLong)
	return nil
}

// symbolRules returns the exchange trading rules for the configured pair,
// fetching them on first use.
func (s *Service) symbolRules(ctx context.Context) (*domain.SymbolRules, error) {
	s.mu.Lock()
	rules := s.rules
	s.mu.Unlock()
	if rules != nil {
		return rules, nil
	}

	err := s.retrier.Do(ctx, "get symbol rules", func(ctx context.Context) error {
		var err error
		rules, err = s.exchange.GetSymbolRules(ctx, s.cfg.TradingPair)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
	return rules, nil
}

// buy spends the configured percentage of the free quote balance on a
// market buy. Quantity validation failures leave the position unchanged.
func (s *Service) buy(ctx context.Context) error {
	s.mu.Lock()
	if s.tentative {
		s.mu.Unlock()
		s.logger.Warn(ctx, "Skipping buy, previous order not yet reconciled", nil)
		return nil
	}
	quoteFree := s.quoteFree
	s.mu.Unlock()

	rules, err := s.symbolRules(ctx)
	if err != nil {
		return fmt.Errorf("fetching symbol rules: %w", err)
	}

	var price decimal.Decimal
	err = s.retrier.Do(ctx, "get ticker price", func(ctx context.Context) error {
		var err error
		price, err = s.exchange.GetTickerPrice(ctx, s.cfg.TradingPair)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetching ticker price: %w", err)
	}
	if price.Sign() <= 0 {
		return fmt.Errorf("non-positive ticker price %s: %w", price, ports.ErrInvalidRequest)
	}

	pct := decimal.NewFromFloat(s.cfg.TradingPercentage).Div(decimal.NewFromInt(100))
	raw := quoteFree.Mul(pct).Div(price)

	result, err := sizing.CompliantQuantity(raw, rules, price)
	if err != nil {
		s.logger.Warn(ctx, "Buy quantity rejected by exchange rules", map[string]interface{}{
			"raw_quantity": raw.String(),
			"quote_free":   quoteFree.String(),
			"price":        price.String(),
			"error":        err.Error(),
		})
		return nil
	}

	order, err := s.submit(ctx, domain.Buy, result.Formatted)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.position = domain.PositionLong
	s.tentative = true
	s.lastOrder = order
	s.mu.Unlock()

	// Reconcile balances right away; failure here is not fatal, the next
	// cycle's refresh covers it.
	if err := s.refresh(ctx); err != nil {
		s.logger.Warn(ctx, "Post-buy refresh failed", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

// sell liquidates the full free base balance with a market sell.
func (s *Service) sell(ctx context.Context, reason domain.ExitReason) error {
	s.mu.Lock()
	if s.tentative {
		s.mu.Unlock()
		s.logger.Warn(ctx, "Skipping sell, previous order not yet reconciled", nil)
		return nil
	}
	baseFree := s.baseFree
	s.mu.Unlock()

	rules, err := s.symbolRules(ctx)
	if err != nil {
		return fmt.Errorf("fetching symbol rules: %w", err)
	}

	var price decimal.Decimal
	err = s.retrier.Do(ctx, "get ticker price", func(ctx context.Context) error {
		var err error
		price, err = s.exchange.GetTickerPrice(ctx, s.cfg.TradingPair)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetching ticker price: %w", err)
	}

	result, err := sizing.CompliantQuantity(baseFree, rules, price)
	if err != nil {
		s.logger.Warn(ctx, "Sell quantity rejected by exchange rules", map[string]interface{}{
			"base_free": baseFree.String(),
			"price":     price.String(),
			"reason":    string(reason),
			"error":     err.Error(),
		})
		return nil
	}

	s.logger.Info(ctx, "Exiting position", map[string]interface{}{
		"symbol":   s.cfg.TradingPair,
		"reason":   string(reason),
		"quantity": result.Formatted,
	})

	order, err := s.submit(ctx, domain.Sell, result.Formatted)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.position = domain.PositionFlat
	s.tentative = true
	s.lastOrder = order
	s.mu.Unlock()

	if err := s.refresh(ctx); err != nil {
		s.logger.Warn(ctx, "Post-sell refresh failed", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

// submit places a market order. Submission is deliberately not retried: a
// timeout may mean the order went through, and replaying it would double
// the position. The client order ID lets the exchange reject duplicates.
func (s *Service) submit(ctx context.Context, side domain.OrderSide, quantity string) (*domain.Order, error) {
	clientOrderID := uuid.NewString()
	order, err := s.exchange.PlaceMarketOrder(ctx, s.cfg.TradingPair, side, quantity, clientOrderID)
	if err != nil {
		return nil, fmt.Errorf("placing %s order for %s %s: %w", side, quantity, s.cfg.TradingPair, err)
	}

	if _, err := s.orders.RecordOrder(ctx, order); err != nil {
		s.logger.Error(ctx, err, "Failed to record order", map[string]interface{}{
			"order_id": order.OrderID,
		})
	}
	s.monitor.LogOrder(ctx, order)
	monitor.RecordOrder(s.cfg.TradingPair, string(side))
	return order, nil
}

// Status returns a point-in-time snapshot of the bot state.
func (s *Service) Status() monitor.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := monitor.Status{
		Timestamp:    time.Now(),
		Running:      s.running,
		Position:     s.position,
		Tentative:    s.tentative,
		BaseAsset:    s.cfg.BaseAsset,
		QuoteAsset:   s.cfg.QuoteAsset,
		BaseBalance:  s.baseFree,
		QuoteBalance: s.quoteFree,
		CurrentPrice: s.lastPrice,
		LastSignal:   s.lastSignal,
		LastOrder:    s.lastOrder,
	}
	if s.series != nil {
		st.Indicators = s.series.Latest()
	}
	return st
}
