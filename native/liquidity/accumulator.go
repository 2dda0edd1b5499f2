package liquidity

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Accumulator tracks the running reward total per pool. Totals are created
// implicitly on first write and only ever grow; nothing in this module
// subtracts from them.
type Accumulator struct {
	state engineState
}

// NewAccumulator constructs a pool accumulator over the supplied state backend.
func NewAccumulator(state engineState) *Accumulator {
	return &Accumulator{state: state}
}

// Initialize seeds the pool total with a starting value. Re-initialization
// overwrites any previous seed; a second init is not an error.
func (a *Accumulator) Initialize(poolID string, start *big.Int) error {
	if a == nil || a.state == nil {
		return ErrNilState
	}
	seed := big.NewInt(0)
	if start != nil {
		if start.Sign() < 0 {
			return ErrInvalidAmount
		}
		seed = new(big.Int).Set(start)
	}
	return a.state.PoolRewardsPut(poolID, seed)
}

// Add grows the pool total by amount and returns the new total.
func (a *Accumulator) Add(poolID string, amount *big.Int) (*big.Int, error) {
	next, err := a.stage(poolID, amount)
	if err != nil {
		return nil, err
	}
	if err := a.commit(poolID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// stage computes the grown total without persisting it, so callers can order
// the accumulator write against their own state changes.
func (a *Accumulator) stage(poolID string, amount *big.Int) (*big.Int, error) {
	if a == nil || a.state == nil {
		return nil, ErrNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	current, err := a.Read(poolID)
	if err != nil {
		return nil, err
	}
	total, overflow := uint256.FromBig(current)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	delta, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	sum, carry := new(uint256.Int).AddOverflow(total, delta)
	if carry {
		return nil, ErrArithmeticOverflow
	}
	return sum.ToBig(), nil
}

// commit persists a total produced by stage.
func (a *Accumulator) commit(poolID string, total *big.Int) error {
	if a == nil || a.state == nil {
		return ErrNilState
	}
	return a.state.PoolRewardsPut(poolID, total)
}

// Read returns the accumulated total for the pool, zero when unknown.
func (a *Accumulator) Read(poolID string) (*big.Int, error) {
	if a == nil || a.state == nil {
		return nil, ErrNilState
	}
	total, err := a.state.PoolRewardsGet(poolID)
	if err != nil {
		return nil, err
	}
	if total == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(total), nil
}
