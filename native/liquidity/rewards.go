package liquidity

import "github.com/holiman/uint256"

// computeReward evaluates the five-factor reward formula against a record
// snapshot. It returns the reward together with the (possibly advanced)
// consecutive-day counter and never mutates the record itself. Every
// arithmetic step is overflow-checked; any saturation aborts the whole
// computation with ErrArithmeticOverflow.
func computeReward(rec *ProviderRecord, now int64) (*uint256.Int, uint64, error) {
	if rec == nil {
		return nil, 0, ErrNilState
	}
	// liquidityStartTime is only ever set to a caller-supplied "now", so a
	// well-behaved notifier keeps elapsed non-negative; clamp guards against
	// a replayed clock.
	elapsed := now - rec.LiquidityStartTime
	if elapsed < 0 {
		elapsed = 0
	}

	timeReward, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(uint64(elapsed)), timeRate)
	if overflow {
		return nil, 0, ErrArithmeticOverflow
	}

	held, over := uint256.FromBig(rec.TotalLiquidity)
	if over {
		return nil, 0, ErrArithmeticOverflow
	}
	amountReward, overflow := new(uint256.Int).MulOverflow(held, amountRate)
	if overflow {
		return nil, 0, ErrArithmeticOverflow
	}

	// Single-step milestone policy: a call that skips several day boundaries
	// still advances the counter by exactly one. Not a catch-up loop.
	days := rec.ConsecutiveDays
	threshold, overflow := new(uint256.Int).MulOverflow(
		uint256.NewInt(uint64(OneDay)), uint256.NewInt(days+1))
	if overflow {
		return nil, 0, ErrArithmeticOverflow
	}
	if uint256.NewInt(uint64(elapsed)).Cmp(threshold) >= 0 {
		days++
	}
	milestoneReward, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(days), milestoneRate)
	if overflow {
		return nil, 0, ErrArithmeticOverflow
	}

	crossReward, overflow := new(uint256.Int).MulOverflow(
		uint256.NewInt(rec.CrossPlatformContributions), crossRate)
	if overflow {
		return nil, 0, ErrArithmeticOverflow
	}

	sum := new(uint256.Int)
	for _, part := range []*uint256.Int{timeReward, amountReward, milestoneReward, crossReward} {
		var carry bool
		sum, carry = sum.AddOverflow(sum, part)
		if carry {
			return nil, 0, ErrArithmeticOverflow
		}
	}

	if now < rec.LockupEndTime {
		// Integer division: a lockup with less than a day remaining yields a
		// zero factor and therefore a zero reward for this pass.
		factor := uint64((rec.LockupEndTime - now) / OneDay)
		boosted, overflow := new(uint256.Int).MulOverflow(sum, uint256.NewInt(factor))
		if overflow {
			return nil, 0, ErrArithmeticOverflow
		}
		return boosted, days, nil
	}
	return sum, days, nil
}
