package domain

import "github.com/shopspring/decimal"

// SymbolRules are the exchange-imposed trading constraints for one pair,
// taken from the LOT_SIZE and notional filters of the exchange info payload.
// They are read-only to the bot and refreshed on demand; if the exchange
// changes them the next fetch picks them up.
type SymbolRules struct {
	Symbol      string
	StepSize    decimal.Decimal // quantity quantization granularity
	MinQty      decimal.Decimal
	MaxQty      decimal.Decimal
	MinNotional decimal.Decimal // minimum quantity × price per order
}
