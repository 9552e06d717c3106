package domain

import "github.com/shopspring/decimal"

// AssetBalance holds the free and locked quantity of a single asset.
type AssetBalance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// AccountSnapshot is the authoritative view of the account balances at a
// point in time. It is fetched fresh each trading cycle and always supersedes
// the previous one; the bot never caches it across cycles.
type AccountSnapshot struct {
	Balances []AssetBalance
}

// FreeBalance returns the free quantity of the given asset, or zero when the
// asset is not present in the snapshot.
func (a *AccountSnapshot) FreeBalance(asset string) decimal.Decimal {
	for _, b := range a.Balances {
		if b.Asset == asset {
			return b.Free
		}
	}
	return decimal.Zero
}
