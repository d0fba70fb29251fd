//go:build integration

package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := redis.Run(ctx, "redis:7-alpine")
	require.Nil(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	require.Nil(t, err)
	return strings.TrimPrefix(endpoint, "redis://")
}

func TestRedisStore(t *testing.T) {
	addr := setupRedisContainer(t)

	s, err := NewRedisStore(context.Background(), addr, "", 0, time.Minute)
	require.Nil(t, err)
	require.Nil(t, s.Ping(context.Background()))

	storeSuite(t, s)
}

func TestRedisStorePrunesExpired(t *testing.T) {
	addr := setupRedisContainer(t)
	ctx := context.Background()

	s, err := NewRedisStore(ctx, addr, "", 0, time.Second)
	require.Nil(t, err)
	defer s.Close()

	report := newReport(time.Now(), 0.2)
	require.Nil(t, s.Put(ctx, report))

	time.Sleep(2 * time.Second)

	latest, err := s.Latest(ctx, 5)
	require.Nil(t, err)
	assert.Empty(t, latest)

	count, err := s.client.ZCard(ctx, reportIndexKey).Result()
	require.Nil(t, err)
	assert.Equal(t, int64(0), count)
}

func TestNewRedisStoreErrors(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "", "", 0, time.Minute)
	assert.ErrorIs(t, err, ErrMissingAddr)

	_, err = NewRedisStore(context.Background(), "localhost:6379", "", -1, time.Minute)
	assert.NotNil(t, err)
}
