package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBalanceCacheMissOnAbsentKey(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisBalanceCache(client, time.Minute)

	mock.ExpectGet(balanceKey("acct-1")).RedisNil()

	_, ok, err := c.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBalanceCacheHitParsesDecimal(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisBalanceCache(client, time.Minute)

	mock.ExpectGet(balanceKey("acct-1")).SetVal("42.50")

	got, ok, err := c.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("42.50").Equal(got))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBalanceCacheRejectsCorruptEntry(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisBalanceCache(client, time.Minute)

	mock.ExpectGet(balanceKey("acct-1")).SetVal("not-a-number")

	_, ok, err := c.Get(context.Background(), "acct-1")
	require.Error(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBalanceCacheSurfacesBackendError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisBalanceCache(client, time.Minute)

	mock.ExpectGet(balanceKey("acct-1")).SetErr(errors.New("connection refused"))

	_, ok, err := c.Get(context.Background(), "acct-1")
	require.Error(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBalanceCachePutStoresWithTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisBalanceCache(client, time.Minute)

	balance := decimal.RequireFromString("73.1")
	mock.ExpectSet(balanceKey("acct-1"), balance.String(), time.Minute).SetVal("OK")

	require.NoError(t, c.Put(context.Background(), "acct-1", balance))
	require.NoError(t, mock.ExpectationsWereMet())
}
