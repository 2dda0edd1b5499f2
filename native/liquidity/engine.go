package liquidity

import (
	"errors"
	"math/big"
	"sync"

	"liqmine/core/events"
	"liqmine/native/common"
)

// Engine implements the reward-accrual state machine for liquidity providers.
// The surrounding pool-management runtime notifies it before and after every
// liquidity mutation; "before" calls adjust raw balances in the ledger and
// "after" calls run the compute-and-accrue pass.
//
// The engine may be hosted by a concurrent server, so a single mutex
// serialises every notification and keeps the read-compute-write cycle per
// call atomic.
type Engine struct {
	mu         sync.Mutex
	state      engineState
	ledger     *Ledger
	pools      *Accumulator
	emitter    events.Emitter
	authorizer common.SourceAuthorizer
}

// NewEngine constructs an engine with default dependencies. State and
// authorizer must be wired before the engine accepts notifications.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
	e.ledger = NewLedger(state)
	e.pools = NewAccumulator(state)
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetAuthorizer registers the predicate that identifies the sole event source.
func (e *Engine) SetAuthorizer(auth common.SourceAuthorizer) {
	if e == nil {
		return
	}
	e.authorizer = auth
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) guard(caller [20]byte) error {
	if err := common.Guard(e.authorizer, caller); err != nil {
		if errors.Is(err, common.ErrUnauthorizedSource) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

// NotifyBeforeAdd records an incoming deposit ahead of the pool mutation.
func (e *Engine) NotifyBeforeAdd(caller, provider [20]byte, poolID string, amount *big.Int, now int64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.guard(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.ledger.ApplyAdded(provider, amount, now); err != nil {
		return err
	}
	e.emit(events.LiquidityAdded{Provider: provider, Amount: new(big.Int).Set(amount)})
	return nil
}

// NotifyAfterAdd runs the compute-and-accrue pass once the deposit has
// settled upstream. It returns the reward credited to the pool.
func (e *Engine) NotifyAfterAdd(caller, provider [20]byte, poolID string, now int64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := e.guard(caller); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.computeAndAccrue(provider, poolID, now)
}

// NotifyBeforeRemove records an outgoing withdrawal ahead of the pool mutation.
func (e *Engine) NotifyBeforeRemove(caller, provider [20]byte, poolID string, amount *big.Int, now int64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.guard(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.ledger.ApplyRemoved(provider, amount, now); err != nil {
		return err
	}
	e.emit(events.LiquidityRemoved{Provider: provider, Amount: new(big.Int).Set(amount)})
	return nil
}

// NotifyAfterRemove runs the identical compute-and-accrue pass on the
// withdrawal path.
func (e *Engine) NotifyAfterRemove(caller, provider [20]byte, poolID string, now int64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := e.guard(caller); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.computeAndAccrue(provider, poolID, now)
}

// NotifyPoolInitialized seeds the reward accumulator for a pool.
func (e *Engine) NotifyPoolInitialized(caller [20]byte, poolID string, start *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.guard(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.pools.Initialize(poolID, start); err != nil {
		return err
	}
	seed := big.NewInt(0)
	if start != nil {
		seed = new(big.Int).Set(start)
	}
	e.emit(events.PoolInitialized{Pool: poolID, Start: seed})
	return nil
}

// LockLiquidity commits the provider to a lockup window ending now+duration.
func (e *Engine) LockLiquidity(caller, provider [20]byte, duration int64, now int64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.guard(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, err := e.ledger.Lock(provider, duration, now)
	if err != nil {
		return err
	}
	e.emit(events.LiquidityLocked{Provider: provider, Duration: duration, Until: rec.LockupEndTime})
	return nil
}

// RecordCrossPlatformContribution counts an attested external activity credit
// and returns the new total.
func (e *Engine) RecordCrossPlatformContribution(caller, provider [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	if err := e.guard(caller); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, err := e.ledger.RecordCrossContribution(provider)
	if err != nil {
		return 0, err
	}
	e.emit(events.CrossContribution{Provider: provider, Total: rec.CrossPlatformContributions})
	return rec.CrossPlatformContributions, nil
}

// computeAndAccrue evaluates the reward formula for the provider, credits the
// pool accumulator and opens a fresh accrual window. The accumulator write
// and the record update commit together or not at all: the reward (including
// any overflow) is fully resolved before either write happens, and a failed
// accumulator write rolls the record back.
func (e *Engine) computeAndAccrue(provider [20]byte, poolID string, now int64) (*big.Int, error) {
	rec, err := e.ledger.Get(provider)
	if err != nil {
		return nil, err
	}
	reward, days, err := computeReward(rec, now)
	if err != nil {
		return nil, err
	}
	rewardBig := reward.ToBig()
	total, err := e.pools.stage(poolID, rewardBig)
	if err != nil {
		return nil, err
	}
	prev := rec.Clone()
	rec.ConsecutiveDays = days
	rec.LiquidityStartTime = now
	if err := e.state.LiquidityProviderPut(rec); err != nil {
		return nil, err
	}
	if err := e.pools.commit(poolID, total); err != nil {
		_ = e.state.LiquidityProviderPut(prev)
		return nil, err
	}
	e.emit(events.RewardsCalculated{Provider: provider, Pool: poolID, Reward: new(big.Int).Set(rewardBig)})
	return rewardBig, nil
}

// ProviderRecord returns a copy of the provider's record without mutating state.
func (e *Engine) ProviderRecord(provider [20]byte) (*ProviderRecord, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Get(provider)
}

// PoolRewards returns the accumulated reward total for the pool.
func (e *Engine) PoolRewards(poolID string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pools.Read(poolID)
}
