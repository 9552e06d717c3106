package ports

import (
	"context"

	"cryptoSpotBot/internal/domain"
)

// OrderRepository defines the interface for the order audit trail. Records
// are append-only: exactly one is persisted per submitted order, and the
// trading core never reads position state back from it.
type OrderRepository interface {
	// RecordOrder saves a returned order and returns its assigned row ID.
	RecordOrder(ctx context.Context, order *domain.Order) (int64, error)
	// FindRecentBySymbol retrieves the most recent orders for a symbol, up to a limit.
	FindRecentBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Order, error)
	// CountTodayBySymbol counts the orders submitted today for a symbol.
	CountTodayBySymbol(ctx context.Context, symbol string) (int, error)
}
