package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"liqmine/core/events"
)

// LiquidityMetrics aggregates the prometheus collectors for the reward engine.
type LiquidityMetrics struct {
	liquidityAdds    prometheus.Counter
	liquidityRemoves prometheus.Counter
	lockups          prometheus.Counter
	crossCredits     prometheus.Counter
	rewardsComputed  *prometheus.CounterVec
	poolRewards      *prometheus.GaugeVec
}

var (
	liquidityOnce     sync.Once
	liquidityRegistry *LiquidityMetrics
)

// Liquidity returns the process-wide collector set, registering it on first use.
func Liquidity() *LiquidityMetrics {
	liquidityOnce.Do(func() {
		liquidityRegistry = &LiquidityMetrics{
			liquidityAdds: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "liquidity_adds_total",
				Help: "Count of processed liquidity additions.",
			}),
			liquidityRemoves: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "liquidity_removes_total",
				Help: "Count of processed liquidity removals.",
			}),
			lockups: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "liquidity_lockups_total",
				Help: "Count of lockup commitments registered.",
			}),
			crossCredits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "liquidity_cross_contributions_total",
				Help: "Count of cross-platform activity credits recorded.",
			}),
			rewardsComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "liquidity_rewards_computed_total",
				Help: "Count of compute-and-accrue passes per pool.",
			}, []string{"pool"}),
			poolRewards: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "liquidity_pool_rewards",
				Help: "Latest observed accumulated reward total per pool.",
			}, []string{"pool"}),
		}
		prometheus.MustRegister(
			liquidityRegistry.liquidityAdds,
			liquidityRegistry.liquidityRemoves,
			liquidityRegistry.lockups,
			liquidityRegistry.crossCredits,
			liquidityRegistry.rewardsComputed,
			liquidityRegistry.poolRewards,
		)
	})
	return liquidityRegistry
}

// ObservePoolTotal records the accumulator reading for a pool.
func (m *LiquidityMetrics) ObservePoolTotal(pool string, total *big.Int) {
	if m == nil || total == nil {
		return
	}
	value, _ := new(big.Float).SetInt(total).Float64()
	m.poolRewards.WithLabelValues(pool).Set(value)
}

// Recorder adapts the collector set to the engine's event emitter so metric
// updates ride the same fan-out as every other observer.
type Recorder struct {
	metrics *LiquidityMetrics
}

// NewRecorder wires a recorder over the process-wide collectors.
func NewRecorder() *Recorder {
	return &Recorder{metrics: Liquidity()}
}

// Emit implements the events.Emitter interface.
func (r *Recorder) Emit(evt events.Event) {
	if r == nil || r.metrics == nil {
		return
	}
	switch e := evt.(type) {
	case events.LiquidityAdded:
		r.metrics.liquidityAdds.Inc()
	case events.LiquidityRemoved:
		r.metrics.liquidityRemoves.Inc()
	case events.LiquidityLocked:
		r.metrics.lockups.Inc()
	case events.CrossContribution:
		r.metrics.crossCredits.Inc()
	case events.RewardsCalculated:
		r.metrics.rewardsComputed.WithLabelValues(e.Pool).Inc()
	}
}
