package liquidity

import "math/big"

// ProviderRecord tracks one provider's contribution history. Records are
// created on first access and never deleted; a provider that has withdrawn
// everything keeps a record with a zero balance.
type ProviderRecord struct {
	Provider                   [20]byte
	TotalLiquidity             *big.Int
	LiquidityStartTime         int64
	ConsecutiveDays            uint64
	LockupEndTime              int64
	CrossPlatformContributions uint64
}

// Clone creates a deep copy so callers cannot mutate ledger-owned state.
func (r *ProviderRecord) Clone() *ProviderRecord {
	if r == nil {
		return nil
	}
	clone := &ProviderRecord{
		Provider:                   r.Provider,
		LiquidityStartTime:         r.LiquidityStartTime,
		ConsecutiveDays:            r.ConsecutiveDays,
		LockupEndTime:              r.LockupEndTime,
		CrossPlatformContributions: r.CrossPlatformContributions,
	}
	if r.TotalLiquidity != nil {
		clone.TotalLiquidity = new(big.Int).Set(r.TotalLiquidity)
	}
	return clone
}

func newProviderRecord(provider [20]byte) *ProviderRecord {
	return &ProviderRecord{Provider: provider, TotalLiquidity: big.NewInt(0)}
}

func normalizeRecord(rec *ProviderRecord, provider [20]byte) *ProviderRecord {
	if rec == nil {
		return newProviderRecord(provider)
	}
	if rec.TotalLiquidity == nil {
		rec.TotalLiquidity = big.NewInt(0)
	}
	rec.Provider = provider
	return rec
}
