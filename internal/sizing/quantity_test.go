package sizing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSpotBot/internal/domain"
	"cryptoSpotBot/internal/ports"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rules(step, minQty, maxQty, minNotional string) *domain.SymbolRules {
	return &domain.SymbolRules{
		Symbol:      "BTCUSDC",
		StepSize:    dec(step),
		MinQty:      dec(minQty),
		MaxQty:      dec(maxQty),
		MinNotional: dec(minNotional),
	}
}

func TestCompliantQuantity_RoundsDownToStepMultiple(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		step string
		want string
	}{
		{name: "exact multiple unchanged", raw: "0.01", step: "0.00001", want: "0.01000"},
		{name: "excess digits truncated", raw: "0.0123456", step: "0.00001", want: "0.01234"},
		{name: "coarse step", raw: "7.9", step: "0.5", want: "7.5"},
		{name: "integer step", raw: "12.34", step: "1", want: "12"},
		{name: "step with trailing zeros", raw: "0.5554", step: "0.00100", want: "0.555"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := CompliantQuantity(dec(tt.raw), rules(tt.step, "0.00001", "9000", "0"), dec("50000"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Formatted)

			// Never rounds up, and the result is an exact step multiple.
			assert.True(t, res.Quantity.LessThanOrEqual(dec(tt.raw)))
			assert.True(t, res.Quantity.Mod(dec(tt.step)).IsZero())
		})
	}
}

func TestCompliantQuantity_ClampsToMinQty(t *testing.T) {
	res, err := CompliantQuantity(dec("0.00004"), rules("0.00001", "0.0001", "9000", "0"), dec("100000"))
	require.NoError(t, err)
	assert.Equal(t, "0.00010", res.Formatted)
}

func TestCompliantQuantity_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		rules *domain.SymbolRules
		price string
	}{
		{name: "non-positive quantity", raw: "0", rules: rules("0.00001", "0", "9000", "0"), price: "50000"},
		{name: "above max quantity", raw: "9001", rules: rules("0.00001", "0.0001", "9000", "0"), price: "50000"},
		{name: "below min notional", raw: "0.0001", rules: rules("0.00001", "0.0001", "9000", "10"), price: "50000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompliantQuantity(dec(tt.raw), tt.rules, dec(tt.price))
			require.Error(t, err)
			assert.ErrorIs(t, err, ports.ErrInvalidRequest)
		})
	}
}

func TestCompliantQuantity_MinNotionalBoundary(t *testing.T) {
	// quantity * price == minNotional exactly is allowed
	res, err := CompliantQuantity(dec("0.0002"), rules("0.0001", "0.0001", "9000", "10"), dec("50000"))
	require.NoError(t, err)
	assert.Equal(t, "0.0002", res.Formatted)
}

func TestCompliantQuantity_MissingRules(t *testing.T) {
	_, err := CompliantQuantity(dec("1"), nil, dec("1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrSymbolRulesMissing)
}

func TestCompliantQuantity_FullBalanceSellScenario(t *testing.T) {
	// 1000 quote at 50% deployment and price 50000 gives a raw 0.01; the
	// exchange expects the five-decimal string form for a 0.00001 step.
	raw := dec("1000").Mul(dec("50").Div(dec("100"))).Div(dec("50000"))
	res, err := CompliantQuantity(raw, rules("0.00001", "0.0001", "9000", "10"), dec("50000"))
	require.NoError(t, err)
	assert.Equal(t, "0.01000", res.Formatted)
}

func TestStepPrecision(t *testing.T) {
	tests := []struct {
		step string
		want int32
	}{
		{step: "0.00001", want: 5},
		{step: "0.00100", want: 3},
		{step: "0.1", want: 1},
		{step: "1", want: 0},
		{step: "10", want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StepPrecision(dec(tt.step)), "step %s", tt.step)
	}
}
