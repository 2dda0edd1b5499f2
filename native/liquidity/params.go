package liquidity

import "github.com/holiman/uint256"

// OneDay is the milestone and lockup granularity in seconds.
const OneDay int64 = 86_400

// Reward rates. Values follow the reference emission schedule: one base unit
// per second scaled to 18 decimals, a per-liquidity-unit rate at 12 decimals,
// and flat 18-decimal rates per milestone day and cross-platform credit.
var (
	timeRate      = uint256.NewInt(1_000_000_000_000_000_000)
	amountRate    = uint256.NewInt(1_000_000_000_000)
	milestoneRate = uint256.NewInt(10_000_000_000_000_000_000)
	crossRate     = uint256.NewInt(5_000_000_000_000_000_000)
)
