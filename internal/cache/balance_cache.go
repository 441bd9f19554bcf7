package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceCache is a non-authoritative read accelerator for account balances.
// Implementations only ever hold values that were true at some commit point;
// the ledger store remains the source of truth.
type BalanceCache interface {
	// Get returns the cached balance and true on a hit. Entries older than
	// the TTL are treated as absent.
	Get(ctx context.Context, accountID string) (decimal.Decimal, bool, error)

	// Put unconditionally overwrites the entry with the given value.
	Put(ctx context.Context, accountID string, balance decimal.Decimal) error
}

type memoryEntry struct {
	balance     decimal.Decimal
	refreshedAt time.Time
}

// MemoryBalanceCache is a process-local TTL map. Concurrent writers may race
// on population; last write wins, which is acceptable for a cache that is
// refreshed with post-commit values.
type MemoryBalanceCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryBalanceCache(ttl time.Duration) *MemoryBalanceCache {
	return &MemoryBalanceCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

var _ BalanceCache = (*MemoryBalanceCache)(nil)

func (c *MemoryBalanceCache) Get(ctx context.Context, accountID string) (decimal.Decimal, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[accountID]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.refreshedAt) >= c.ttl {
		return decimal.Zero, false, nil
	}
	return entry.balance, true, nil
}

func (c *MemoryBalanceCache) Put(ctx context.Context, accountID string, balance decimal.Decimal) error {
	c.mu.Lock()
	c.entries[accountID] = memoryEntry{
		balance:     balance,
		refreshedAt: c.now(),
	}
	c.mu.Unlock()
	return nil
}
