package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreClosed(t *testing.T) {
	r := &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}),
		ttl:    time.Minute,
	}
	require.Nil(t, r.Close())
	require.Nil(t, r.Close())

	ctx := context.Background()
	_, _, err := r.Get(ctx, "run")
	assert.ErrorIs(t, err, redis.ErrClosed)

	err = r.Put(ctx, newReport(time.Now(), 1))
	assert.ErrorIs(t, err, redis.ErrClosed)

	_, err = r.Latest(ctx, 1)
	assert.ErrorIs(t, err, redis.ErrClosed)

	assert.ErrorIs(t, r.Ping(ctx), redis.ErrClosed)
}
