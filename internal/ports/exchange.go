package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"cryptoSpotBot/internal/domain"
)

// ExchangeClient defines the interface for interacting with a cryptocurrency
// exchange. The trading core consumes it as a black box; decoupling from the
// concrete exchange implementation keeps the state machine testable.
type ExchangeClient interface {
	// Ping checks the connectivity to the exchange API. Failure is transient.
	Ping(ctx context.Context) error

	// GetAccountSnapshot retrieves the current balances for every asset on
	// the account.
	GetAccountSnapshot(ctx context.Context) (*domain.AccountSnapshot, error)

	// GetTickerPrice retrieves the last ticker price for a given symbol.
	GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// GetKlines retrieves historical klines/candlestick data for the given
	// symbol, ordered most-recent-last.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)

	// GetSymbolRules retrieves the lot-size and notional constraints the
	// exchange enforces for the given symbol.
	GetSymbolRules(ctx context.Context, symbol string) (*domain.SymbolRules, error)

	// PlaceMarketOrder submits a market order. The quantity string must
	// already satisfy the symbol's lot-size rules. The clientOrderID is
	// attached so the exchange can suppress duplicate submissions.
	// Exchange-side rejection and network failure are distinguishable via
	// the ports error sentinels.
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string, clientOrderID string) (*domain.Order, error)
}
