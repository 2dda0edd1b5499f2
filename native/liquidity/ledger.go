package liquidity

import "math/big"

// engineState describes the minimal persistence surface the liquidity module
// needs from the surrounding state implementation. Get calls return nil when
// no value has been stored yet; the module supplies zero-valued defaults.
type engineState interface {
	LiquidityProviderGet(provider [20]byte) (*ProviderRecord, error)
	LiquidityProviderPut(record *ProviderRecord) error
	PoolRewardsGet(poolID string) (*big.Int, error)
	PoolRewardsPut(poolID string, total *big.Int) error
}

// Ledger owns the per-provider contribution records. It is pure state plus
// mutation: validation and bookkeeping live here, reward policy does not.
type Ledger struct {
	state engineState
}

// NewLedger constructs a ledger over the supplied state backend.
func NewLedger(state engineState) *Ledger {
	return &Ledger{state: state}
}

// Get returns the record for the provider, creating a zero-valued one on
// first access. The returned record is a copy; mutations go through the
// Apply methods.
func (l *Ledger) Get(provider [20]byte) (*ProviderRecord, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	rec, err := l.state.LiquidityProviderGet(provider)
	if err != nil {
		return nil, err
	}
	return normalizeRecord(rec.Clone(), provider), nil
}

// ApplyAdded registers a liquidity deposit. A deposit into an empty position
// opens a fresh accrual window at the caller-supplied timestamp.
func (l *Ledger) ApplyAdded(provider [20]byte, amount *big.Int, now int64) (*ProviderRecord, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	rec, err := l.Get(provider)
	if err != nil {
		return nil, err
	}
	if rec.TotalLiquidity.Sign() == 0 {
		rec.LiquidityStartTime = now
	}
	rec.TotalLiquidity = new(big.Int).Add(rec.TotalLiquidity, amount)
	if err := l.state.LiquidityProviderPut(rec); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// ApplyRemoved registers a liquidity withdrawal. Removing the final unit of
// liquidity resets the consecutive-day counter at exactly that transition;
// no other operation touches it downward.
func (l *Ledger) ApplyRemoved(provider [20]byte, amount *big.Int, now int64) (*ProviderRecord, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	rec, err := l.Get(provider)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(rec.TotalLiquidity) > 0 {
		return nil, ErrInsufficientLiquidity
	}
	rec.TotalLiquidity = new(big.Int).Sub(rec.TotalLiquidity, amount)
	if rec.TotalLiquidity.Sign() == 0 {
		rec.ConsecutiveDays = 0
	}
	if err := l.state.LiquidityProviderPut(rec); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Lock commits the provider to a lockup ending at now+duration. A new lock
// overwrites any existing one; durations do not stack.
func (l *Ledger) Lock(provider [20]byte, duration int64, now int64) (*ProviderRecord, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	rec, err := l.Get(provider)
	if err != nil {
		return nil, err
	}
	rec.LockupEndTime = now + duration
	if err := l.state.LiquidityProviderPut(rec); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// RecordCrossContribution counts an externally attested activity credit. The
// counter only ever grows, independent of the liquidity balance.
func (l *Ledger) RecordCrossContribution(provider [20]byte) (*ProviderRecord, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	rec, err := l.Get(provider)
	if err != nil {
		return nil, err
	}
	rec.CrossPlatformContributions++
	if err := l.state.LiquidityProviderPut(rec); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}
