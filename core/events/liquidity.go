package events

import (
	"math/big"

	"liqmine/core/types"
)

const (
	TypeLiquidityAdded    = "liquidity.added"
	TypeLiquidityRemoved  = "liquidity.removed"
	TypeRewardsCalculated = "liquidity.rewards_calculated"
	TypeLiquidityLocked   = "liquidity.locked"
	TypePoolInitialized   = "liquidity.pool_initialized"
	TypeCrossContribution = "liquidity.cross_contribution"
)

// LiquidityAdded is emitted when a provider's tracked balance grows.
type LiquidityAdded struct {
	Provider [20]byte
	Amount   *big.Int
}

// EventType implements the Event interface.
func (LiquidityAdded) EventType() string { return TypeLiquidityAdded }

// Event converts the addition to the generic representation.
func (e LiquidityAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidityAdded,
		Attributes: map[string]string{
			"provider": hexAddr(e.Provider),
			"amount":   formatAmount(e.Amount),
		},
	}
}

// LiquidityRemoved is emitted when a provider withdraws part of its balance.
type LiquidityRemoved struct {
	Provider [20]byte
	Amount   *big.Int
}

// EventType implements the Event interface.
func (LiquidityRemoved) EventType() string { return TypeLiquidityRemoved }

// Event converts the removal to the generic representation.
func (e LiquidityRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidityRemoved,
		Attributes: map[string]string{
			"provider": hexAddr(e.Provider),
			"amount":   formatAmount(e.Amount),
		},
	}
}

// RewardsCalculated is emitted after every compute-and-accrue pass.
type RewardsCalculated struct {
	Provider [20]byte
	Pool     string
	Reward   *big.Int
}

// EventType implements the Event interface.
func (RewardsCalculated) EventType() string { return TypeRewardsCalculated }

// Event converts the reward computation to the generic representation.
func (e RewardsCalculated) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardsCalculated,
		Attributes: map[string]string{
			"provider": hexAddr(e.Provider),
			"pool":     e.Pool,
			"reward":   formatAmount(e.Reward),
		},
	}
}

// LiquidityLocked is emitted when a provider commits to a lockup window.
type LiquidityLocked struct {
	Provider [20]byte
	Duration int64
	Until    int64
}

// EventType implements the Event interface.
func (LiquidityLocked) EventType() string { return TypeLiquidityLocked }

// Event converts the lockup to the generic representation.
func (e LiquidityLocked) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidityLocked,
		Attributes: map[string]string{
			"provider": hexAddr(e.Provider),
			"duration": intToString(e.Duration),
			"until":    intToString(e.Until),
		},
	}
}

// PoolInitialized is emitted when a pool accumulator is seeded.
type PoolInitialized struct {
	Pool  string
	Start *big.Int
}

// EventType implements the Event interface.
func (PoolInitialized) EventType() string { return TypePoolInitialized }

// Event converts the seeding to the generic representation.
func (e PoolInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypePoolInitialized,
		Attributes: map[string]string{
			"pool":  e.Pool,
			"start": formatAmount(e.Start),
		},
	}
}

// CrossContribution is emitted when an external activity credit is attested.
type CrossContribution struct {
	Provider [20]byte
	Total    uint64
}

// EventType implements the Event interface.
func (CrossContribution) EventType() string { return TypeCrossContribution }

// Event converts the attestation to the generic representation.
func (e CrossContribution) Event() *types.Event {
	return &types.Event{
		Type: TypeCrossContribution,
		Attributes: map[string]string{
			"provider": hexAddr(e.Provider),
			"total":    uintToString(e.Total),
		},
	}
}
