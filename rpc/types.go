package rpc

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"liqmine/native/liquidity"
)

type notifyLiquidityRequest struct {
	Provider  string `json:"provider"`
	Pool      string `json:"pool"`
	Amount    string `json:"amount,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type lockRequest struct {
	Provider  string `json:"provider"`
	Duration  int64  `json:"duration"`
	Timestamp int64  `json:"timestamp"`
}

type poolInitRequest struct {
	Pool  string `json:"pool"`
	Start string `json:"start,omitempty"`
}

type crossContributionRequest struct {
	Provider string `json:"provider"`
}

type rewardResponse struct {
	Provider string `json:"provider"`
	Pool     string `json:"pool"`
	Reward   string `json:"reward"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type crossContributionResponse struct {
	Provider string `json:"provider"`
	Total    uint64 `json:"total"`
}

type providerResponse struct {
	Provider                   string `json:"provider"`
	TotalLiquidity             string `json:"totalLiquidity"`
	LiquidityStartTime         int64  `json:"liquidityStartTime"`
	ConsecutiveDays            uint64 `json:"consecutiveDays"`
	LockupEndTime              int64  `json:"lockupEndTime"`
	CrossPlatformContributions uint64 `json:"crossPlatformContributions"`
}

type poolResponse struct {
	Pool    string `json:"pool"`
	Rewards string `json:"rewards"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func newProviderResponse(rec *liquidity.ProviderRecord) providerResponse {
	resp := providerResponse{
		Provider:                   "0x" + hex.EncodeToString(rec.Provider[:]),
		TotalLiquidity:             "0",
		LiquidityStartTime:         rec.LiquidityStartTime,
		ConsecutiveDays:            rec.ConsecutiveDays,
		LockupEndTime:              rec.LockupEndTime,
		CrossPlatformContributions: rec.CrossPlatformContributions,
	}
	if rec.TotalLiquidity != nil {
		resp.TotalLiquidity = rec.TotalLiquidity.String()
	}
	return resp
}

func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != len(addr) {
		return addr, errors.New("provider must be a 20-byte hex address")
	}
	copy(addr[:], raw)
	return addr, nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errors.New("amount is required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, errors.New("amount must be a base-10 integer")
	}
	return amount, nil
}
