package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is a single execution that contributed to a filled order.
type Fill struct {
	Price           decimal.Decimal
	Quantity        decimal.Decimal
	Commission      decimal.Decimal
	CommissionAsset string
}

// Order is the exchange-returned record of a submitted market order.
// Once returned it is an append-only historical fact; the bot records its
// outcome but never mutates it.
type Order struct {
	OrderID            int64
	ClientOrderID      string
	Symbol             string
	Side               OrderSide
	OrigQty            decimal.Decimal
	ExecutedQty        decimal.Decimal
	CumulativeQuoteQty decimal.Decimal
	Status             string
	Fills              []Fill
	TransactTime       time.Time
}

// AvgFillPrice returns the quantity-weighted average fill price, or zero when
// the order carries no fills.
func (o *Order) AvgFillPrice() decimal.Decimal {
	var notional, qty decimal.Decimal
	for _, f := range o.Fills {
		notional = notional.Add(f.Price.Mul(f.Quantity))
		qty = qty.Add(f.Quantity)
	}
	if qty.IsZero() {
		return decimal.Zero
	}
	return notional.Div(qty)
}
