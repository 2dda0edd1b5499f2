package state

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"liqmine/native/liquidity"
	"liqmine/storage"
)

const (
	providerKeyFormat = "liquidity/provider/%s"
	poolKeyFormat     = "liquidity/pool/%s"
)

// Manager persists liquidity-module state in a key-value store using RLP
// encoded records. It implements the engine's state interface; a mutex keeps
// each get/put pair consistent when the host serves concurrent requests.
type Manager struct {
	db storage.Database
	mu sync.RWMutex
}

// NewManager constructs a state manager over the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// storedProviderRecord is the wire form of a provider record. RLP has no
// signed integers, so timestamps are persisted as uint64 seconds and the
// balance as its big-endian byte representation.
type storedProviderRecord struct {
	Provider           []byte
	TotalLiquidity     []byte
	LiquidityStartTime uint64
	ConsecutiveDays    uint64
	LockupEndTime      uint64
	CrossContributions uint64
}

func providerKey(provider [20]byte) []byte {
	return []byte(fmt.Sprintf(providerKeyFormat, hex.EncodeToString(provider[:])))
}

func poolKey(poolID string) []byte {
	return []byte(fmt.Sprintf(poolKeyFormat, poolID))
}

// LiquidityProviderGet loads the record for a provider, returning nil when
// none has been stored yet.
func (m *Manager) LiquidityProviderGet(provider [20]byte) (*liquidity.ProviderRecord, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("state: database not configured")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	encoded, err := m.db.Get(providerKey(provider))
	if err != nil {
		if err == storage.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var stored storedProviderRecord
	if err := rlp.DecodeBytes(encoded, &stored); err != nil {
		return nil, fmt.Errorf("state: decode provider record: %w", err)
	}
	record := &liquidity.ProviderRecord{
		Provider:                   provider,
		TotalLiquidity:             new(big.Int).SetBytes(stored.TotalLiquidity),
		LiquidityStartTime:         int64(stored.LiquidityStartTime),
		ConsecutiveDays:            stored.ConsecutiveDays,
		LockupEndTime:              int64(stored.LockupEndTime),
		CrossPlatformContributions: stored.CrossContributions,
	}
	return record, nil
}

// LiquidityProviderPut stores the record under its provider key.
func (m *Manager) LiquidityProviderPut(record *liquidity.ProviderRecord) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	if record == nil {
		return fmt.Errorf("state: nil provider record")
	}
	total := record.TotalLiquidity
	if total == nil {
		total = big.NewInt(0)
	}
	encoded, err := rlp.EncodeToBytes(storedProviderRecord{
		Provider:           append([]byte(nil), record.Provider[:]...),
		TotalLiquidity:     total.Bytes(),
		LiquidityStartTime: uint64(record.LiquidityStartTime),
		ConsecutiveDays:    record.ConsecutiveDays,
		LockupEndTime:      uint64(record.LockupEndTime),
		CrossContributions: record.CrossPlatformContributions,
	})
	if err != nil {
		return fmt.Errorf("state: encode provider record: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put(providerKey(record.Provider), encoded)
}

// PoolRewardsGet loads the accumulated reward total for a pool, nil when the
// pool has never been written.
func (m *Manager) PoolRewardsGet(poolID string) (*big.Int, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("state: database not configured")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	encoded, err := m.db.Get(poolKey(poolID))
	if err != nil {
		if err == storage.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	return new(big.Int).SetBytes(encoded), nil
}

// PoolRewardsPut stores the accumulated reward total for a pool.
func (m *Manager) PoolRewardsPut(poolID string, total *big.Int) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	if total == nil || total.Sign() < 0 {
		return fmt.Errorf("state: pool total must be non-negative")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put(poolKey(poolID), total.Bytes())
}
