package liquidity

import (
	"errors"
	"math/big"
	"testing"

	"liqmine/core/events"
	"liqmine/native/common"
)

var (
	e12 = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)
	e18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func scaled(n int64, unit *big.Int) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), unit)
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func (c *captureEmitter) lastReward() (events.RewardsCalculated, bool) {
	for i := len(c.events) - 1; i >= 0; i-- {
		if evt, ok := c.events[i].(events.RewardsCalculated); ok {
			return evt, true
		}
	}
	return events.RewardsCalculated{}, false
}

var testSource = testProvider(0xAA)

func newTestEngine(t *testing.T) (*Engine, *mockState, *captureEmitter) {
	t.Helper()
	state := newMockState()
	emitter := &captureEmitter{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetEmitter(emitter)
	engine.SetAuthorizer(common.StaticSource(testSource))
	return engine, state, emitter
}

func TestFreshAddLeavesAccumulatorUntouched(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	provider := testProvider(1)

	if err := engine.NotifyBeforeAdd(testSource, provider, "pool-1", big.NewInt(500), 0); err != nil {
		t.Fatalf("before add: %v", err)
	}
	rec, err := engine.ProviderRecord(provider)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.LiquidityStartTime != 0 || rec.TotalLiquidity.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected record %+v", rec)
	}
	total, err := engine.PoolRewards("pool-1")
	if err != nil {
		t.Fatalf("pool rewards: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("accumulator moved before any compute: %s", total)
	}
}

func TestComputeAfterOneDay(t *testing.T) {
	engine, _, emitter := newTestEngine(t)
	provider := testProvider(2)

	if err := engine.NotifyBeforeAdd(testSource, provider, "pool-1", big.NewInt(500), 0); err != nil {
		t.Fatalf("before add: %v", err)
	}
	reward, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", OneDay)
	if err != nil {
		t.Fatalf("after add: %v", err)
	}

	expected := new(big.Int).Set(scaled(OneDay, e18)) // 86400s of holding
	expected.Add(expected, scaled(500, e12))          // 500 units held
	expected.Add(expected, scaled(10, e18))           // first milestone day
	if reward.Cmp(expected) != 0 {
		t.Fatalf("reward mismatch: got %s want %s", reward, expected)
	}

	rec, err := engine.ProviderRecord(provider)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.ConsecutiveDays != 1 {
		t.Fatalf("expected milestone advance to 1, got %d", rec.ConsecutiveDays)
	}
	if rec.LiquidityStartTime != OneDay {
		t.Fatalf("accrual window not reset: %d", rec.LiquidityStartTime)
	}
	total, err := engine.PoolRewards("pool-1")
	if err != nil {
		t.Fatalf("pool rewards: %v", err)
	}
	if total.Cmp(expected) != 0 {
		t.Fatalf("accumulator mismatch: got %s want %s", total, expected)
	}
	evt, ok := emitter.lastReward()
	if !ok {
		t.Fatal("no rewards_calculated event emitted")
	}
	if evt.Reward.Cmp(expected) != 0 {
		t.Fatalf("event reward mismatch: %s", evt.Reward)
	}
}

func TestLockupBoostMultipliesFullSum(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	provider := testProvider(3)

	if err := engine.LockLiquidity(testSource, provider, 10*OneDay, 0); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := engine.NotifyBeforeAdd(testSource, provider, "pool-1", big.NewInt(500), 0); err != nil {
		t.Fatalf("before add: %v", err)
	}
	reward, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", 5*OneDay)
	if err != nil {
		t.Fatalf("after add: %v", err)
	}

	base := new(big.Int).Set(scaled(5*OneDay, e18))
	base.Add(base, scaled(500, e12))
	base.Add(base, scaled(10, e18)) // single milestone step even after five days
	expected := new(big.Int).Mul(base, big.NewInt(5))
	if reward.Cmp(expected) != 0 {
		t.Fatalf("boosted reward mismatch: got %s want %s", reward, expected)
	}
}

func TestExpiredLockupSkipsBoost(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	provider := testProvider(4)

	if err := engine.LockLiquidity(testSource, provider, 10*OneDay, 0); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := engine.NotifyBeforeAdd(testSource, provider, "pool-1", big.NewInt(500), 0); err != nil {
		t.Fatalf("before add: %v", err)
	}
	reward, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", 11*OneDay)
	if err != nil {
		t.Fatalf("after add: %v", err)
	}

	expected := new(big.Int).Set(scaled(11*OneDay, e18))
	expected.Add(expected, scaled(500, e12))
	expected.Add(expected, scaled(10, e18))
	if reward.Cmp(expected) != 0 {
		t.Fatalf("unboosted reward mismatch: got %s want %s", reward, expected)
	}
}

func TestLockupWithUnderOneDayRemainingZeroesReward(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	provider := testProvider(5)

	if err := engine.LockLiquidity(testSource, provider, OneDay/2, 0); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := engine.NotifyBeforeAdd(testSource, provider, "pool-1", big.NewInt(100), 0); err != nil {
		t.Fatalf("before add: %v", err)
	}
	reward, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", OneDay/4)
	if err != nil {
		t.Fatalf("after add: %v", err)
	}
	if reward.Sign() != 0 {
		t.Fatalf("expected zero reward under sub-day lockup remainder, got %s", reward)
	}
}

func TestMilestoneAdvancesOneStepPerCall(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	provider := testProvider(6)

	if err := engine.NotifyBeforeAdd(testSource, provider, "pool-1", big.NewInt(1), 0); err != nil {
		t.Fatalf("before add: %v", err)
	}
	// Five day boundaries elapse, yet a single compute advances the counter
	// by exactly one.
	if _, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", 5*OneDay); err != nil {
		t.Fatalf("after add: %v", err)
	}
	rec, err := engine.ProviderRecord(provider)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.ConsecutiveDays != 1 {
		t.Fatalf("expected single milestone step, got %d", rec.ConsecutiveDays)
	}

	// The window restarted at day five, so the next step needs two more full
	// days of holding.
	if _, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", 6*OneDay); err != nil {
		t.Fatalf("second compute: %v", err)
	}
	rec, _ = engine.ProviderRecord(provider)
	if rec.ConsecutiveDays != 1 {
		t.Fatalf("milestone advanced without a full threshold: %d", rec.ConsecutiveDays)
	}
	if _, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", 8*OneDay); err != nil {
		t.Fatalf("third compute: %v", err)
	}
	rec, _ = engine.ProviderRecord(provider)
	if rec.ConsecutiveDays != 2 {
		t.Fatalf("expected milestone 2, got %d", rec.ConsecutiveDays)
	}
}

func TestRewardFormulaDeterminism(t *testing.T) {
	runScenario := func() *big.Int {
		engine, _, _ := newTestEngine(t)
		provider := testProvider(7)
		if err := engine.NotifyBeforeAdd(testSource, provider, "pool-1", big.NewInt(42), 0); err != nil {
			t.Fatalf("before add: %v", err)
		}
		if _, err := engine.RecordCrossPlatformContribution(testSource, provider); err != nil {
			t.Fatalf("cross: %v", err)
		}
		reward, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", 3*OneDay)
		if err != nil {
			t.Fatalf("after add: %v", err)
		}
		return reward
	}

	first := runScenario()
	second := runScenario()
	if first.Cmp(second) != 0 {
		t.Fatalf("identical state produced different rewards: %s vs %s", first, second)
	}

	// The call itself is not idempotent: a second compute at the same
	// timestamp starts from the reset window and yields a different value.
	engine, _, _ := newTestEngine(t)
	provider := testProvider(8)
	if err := engine.NotifyBeforeAdd(testSource, provider, "pool-1", big.NewInt(42), 0); err != nil {
		t.Fatalf("before add: %v", err)
	}
	one, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", 3*OneDay)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	two, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", 3*OneDay)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if one.Cmp(two) == 0 {
		t.Fatalf("second compute should see a fresh window, both returned %s", one)
	}
}

func TestAccumulatorMatchesSumOfRewards(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	provider := testProvider(9)

	if err := engine.NotifyBeforeAdd(testSource, provider, "pool-1", big.NewInt(250), 0); err != nil {
		t.Fatalf("before add: %v", err)
	}
	sum := big.NewInt(0)
	for i := int64(1); i <= 5; i++ {
		reward, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", i*OneDay)
		if err != nil {
			t.Fatalf("compute %d: %v", i, err)
		}
		sum.Add(sum, reward)
	}
	total, err := engine.PoolRewards("pool-1")
	if err != nil {
		t.Fatalf("pool rewards: %v", err)
	}
	if total.Cmp(sum) != 0 {
		t.Fatalf("accumulator %s != sum of rewards %s", total, sum)
	}
}

func TestUnauthorizedCallerRejected(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	provider := testProvider(10)
	intruder := testProvider(0xBB)

	if err := engine.NotifyBeforeAdd(intruder, provider, "pool-1", big.NewInt(5), 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := engine.NotifyAfterAdd(intruder, provider, "pool-1", OneDay); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.LockLiquidity(intruder, provider, OneDay, 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(state.providers) != 0 || len(state.pools) != 0 {
		t.Fatal("unauthorized call mutated state")
	}
}

func TestOverflowAbortsWithoutPartialState(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	provider := testProvider(11)

	huge := new(big.Int).Lsh(big.NewInt(1), 250)
	state.providers[provider] = &ProviderRecord{
		Provider:           provider,
		TotalLiquidity:     huge,
		LiquidityStartTime: 0,
	}

	if _, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", OneDay); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
	rec := state.providers[provider]
	if rec.LiquidityStartTime != 0 {
		t.Fatalf("overflowing compute reset the accrual window: %d", rec.LiquidityStartTime)
	}
	if total, ok := state.pools["pool-1"]; ok && total.Sign() != 0 {
		t.Fatalf("overflowing compute credited the accumulator: %s", total)
	}
}

func TestStorageFailureDoesNotSplitCommit(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	provider := testProvider(13)

	if err := engine.NotifyBeforeAdd(testSource, provider, "pool-1", big.NewInt(500), 0); err != nil {
		t.Fatalf("before add: %v", err)
	}

	// A record write that never lands must not leave the accumulator credited.
	state.providerPutErr = errors.New("disk full")
	if _, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", OneDay); err == nil {
		t.Fatal("expected record write failure to surface")
	}
	if total, ok := state.pools["pool-1"]; ok && total.Sign() != 0 {
		t.Fatalf("record write failed but accumulator was credited: %s", total)
	}
	rec := state.providers[provider]
	if rec.LiquidityStartTime != 0 || rec.ConsecutiveDays != 0 {
		t.Fatalf("record write failed but window moved: %+v", rec)
	}

	// The converse: a failed accumulator write rolls the window reset back.
	state.providerPutErr = nil
	state.poolPutErr = errors.New("disk full")
	if _, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", OneDay); err == nil {
		t.Fatal("expected accumulator write failure to surface")
	}
	rec = state.providers[provider]
	if rec.LiquidityStartTime != 0 || rec.ConsecutiveDays != 0 {
		t.Fatalf("accumulator write failed but window moved: %+v", rec)
	}
	if total, ok := state.pools["pool-1"]; ok && total.Sign() != 0 {
		t.Fatalf("accumulator credited despite failed write: %s", total)
	}

	// With storage healthy again the same compute goes through whole.
	state.poolPutErr = nil
	reward, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", OneDay)
	if err != nil {
		t.Fatalf("recovered compute: %v", err)
	}
	if total := state.pools["pool-1"]; total.Cmp(reward) != 0 {
		t.Fatalf("accumulator %s != reward %s after recovery", total, reward)
	}
}

func TestPoolReinitializationOverwrites(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if err := engine.NotifyPoolInitialized(testSource, "pool-1", big.NewInt(100)); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := engine.NotifyPoolInitialized(testSource, "pool-1", big.NewInt(7)); err != nil {
		t.Fatalf("reinit: %v", err)
	}
	total, err := engine.PoolRewards("pool-1")
	if err != nil {
		t.Fatalf("pool rewards: %v", err)
	}
	if total.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("reinit should overwrite the seed, got %s", total)
	}
}

func TestCrossContributionsFeedRewards(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	provider := testProvider(12)

	for i := 0; i < 4; i++ {
		if _, err := engine.RecordCrossPlatformContribution(testSource, provider); err != nil {
			t.Fatalf("cross %d: %v", i, err)
		}
	}
	if err := engine.NotifyBeforeAdd(testSource, provider, "pool-1", big.NewInt(1), 0); err != nil {
		t.Fatalf("before add: %v", err)
	}
	reward, err := engine.NotifyAfterAdd(testSource, provider, "pool-1", 1)
	if err != nil {
		t.Fatalf("after add: %v", err)
	}

	expected := new(big.Int).Set(scaled(1, e18)) // one second elapsed
	expected.Add(expected, e12)                  // one unit held
	expected.Add(expected, scaled(20, e18))      // four credits at 5e18 each
	if reward.Cmp(expected) != 0 {
		t.Fatalf("reward mismatch: got %s want %s", reward, expected)
	}
}
