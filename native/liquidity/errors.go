package liquidity

import "errors"

var (
	ErrNilState              = errors.New("liquidity engine: state not configured")
	ErrInvalidAmount         = errors.New("liquidity engine: amount must be positive")
	ErrInsufficientLiquidity = errors.New("liquidity engine: removal exceeds held liquidity")
	ErrInvalidDuration       = errors.New("liquidity engine: lock duration must be positive")
	ErrUnauthorized          = errors.New("liquidity engine: caller is not the registered event source")
	ErrArithmeticOverflow    = errors.New("liquidity engine: reward arithmetic overflow")
)
