// Package sizing converts raw desired quantities into exchange-compliant
// order quantities. All arithmetic is exact decimal: step sizes like 0.00001
// have no exact binary representation, and naive float rounding can produce
// off-by-one-unit quantities the exchange rejects.
package sizing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cryptoSpotBot/internal/domain"
	"cryptoSpotBot/internal/ports"
)

// Result is an exchange-compliant quantity: the exact decimal value and the
// string form the exchange expects, carrying exactly as many fractional
// digits as the step size's own precision.
type Result struct {
	Quantity  decimal.Decimal
	Formatted string
}

// CompliantQuantity rounds raw DOWN to the nearest multiple of the symbol's
// step size, clamps up to the minimum quantity, and validates the result
// against the remaining exchange rules. Rounding up is never allowed:
// overspending or overselling is forbidden.
//
// Validation failures wrap ports.ErrInvalidRequest and must never be
// retried; the caller aborts the triggering action and keeps its state.
func CompliantQuantity(raw decimal.Decimal, rules *domain.SymbolRules, price decimal.Decimal) (Result, error) {
	if rules == nil {
		return Result{}, fmt.Errorf("no trading rules for quantity computation: %w", ports.ErrSymbolRulesMissing)
	}
	if rules.StepSize.Sign() <= 0 {
		return Result{}, fmt.Errorf("step size %s is not positive: %w", rules.StepSize, ports.ErrInvalidRequest)
	}

	// Exact round-down: subtracting the remainder never crosses a step
	// boundary upward, unlike division at a fixed precision.
	qty := raw.Sub(raw.Mod(rules.StepSize))
	if qty.LessThan(rules.MinQty) {
		qty = rules.MinQty
	}

	if qty.Sign() <= 0 {
		return Result{}, fmt.Errorf("computed quantity %s is not positive: %w", qty, ports.ErrInvalidRequest)
	}
	if rules.MaxQty.Sign() > 0 && qty.GreaterThan(rules.MaxQty) {
		return Result{}, fmt.Errorf("quantity %s exceeds maximum %s: %w", qty, rules.MaxQty, ports.ErrInvalidRequest)
	}
	// Defensive re-check: minQty itself is expected to be a step multiple,
	// but the exchange owns that invariant, not us.
	if !qty.Mod(rules.StepSize).IsZero() {
		return Result{}, fmt.Errorf("quantity %s is not a multiple of step size %s: %w", qty, rules.StepSize, ports.ErrInvalidRequest)
	}
	if rules.MinNotional.Sign() > 0 && qty.Mul(price).LessThan(rules.MinNotional) {
		return Result{}, fmt.Errorf("order notional %s is below minimum %s: %w", qty.Mul(price), rules.MinNotional, ports.ErrInvalidRequest)
	}

	return Result{
		Quantity:  qty,
		Formatted: qty.StringFixed(StepPrecision(rules.StepSize)),
	}, nil
}

// StepPrecision returns the number of meaningful fractional digits of a step
// size, trailing zeros stripped: 0.00001 has 5, 0.00100 has 3, 1 has 0.
func StepPrecision(step decimal.Decimal) int32 {
	s := step.String()
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	frac := strings.TrimRight(s[dot+1:], "0")
	return int32(len(frac))
}
