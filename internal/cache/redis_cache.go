package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisBalanceCache stores balances as strings under per-account keys with
// the TTL as key expiration, so entries expire server-side instead of being
// aged out by the reader.
type RedisBalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBalanceCache(client *redis.Client, ttl time.Duration) *RedisBalanceCache {
	return &RedisBalanceCache{
		client: client,
		ttl:    ttl,
	}
}

var _ BalanceCache = (*RedisBalanceCache)(nil)

func balanceKey(accountID string) string {
	return "account:" + accountID + ":balance"
}

func (c *RedisBalanceCache) Get(ctx context.Context, accountID string) (decimal.Decimal, bool, error) {
	value, err := c.client.Get(ctx, balanceKey(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to get balance from cache: %w", err)
	}

	balance, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to parse cached balance: %w", err)
	}
	return balance, true, nil
}

func (c *RedisBalanceCache) Put(ctx context.Context, accountID string, balance decimal.Decimal) error {
	if err := c.client.Set(ctx, balanceKey(accountID), balance.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to put balance into cache: %w", err)
	}
	return nil
}
