package cache

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, time.Minute), mr
}

func TestGet_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)
	_, err := c.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSetGetDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	cart := &domain.Cart{
		UserID: "u1",
		Items: []domain.CartItem{
			{ProductID: "p1", Quantity: 2, Product: &domain.Product{ID: "p1", Name: "Tomato", PriceCents: 100}},
		},
	}

	require.NoError(t, c.Set(ctx, "u1", cart))
	assert.True(t, mr.Exists("cart:u1"))
	ttl := mr.TTL("cart:u1")
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.Less(t, ttl, time.Minute+time.Minute/5+time.Second)

	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Tomato", got.Items[0].Product.Name)

	require.NoError(t, c.Delete(ctx, "u1"))
	_, err = c.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_CorruptPayload(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:u1", "{not json"))
	_, err := c.Get(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestGet_ServerDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()
	_, err := c.Get(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNoop(t *testing.T) {
	var c CartCache = Noop{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "u1", &domain.Cart{}))
	_, err := c.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
