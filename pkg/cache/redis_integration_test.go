//go:build integration

package cache_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"sorso/pkg/cache"
	"sorso/pkg/ratelimit"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client, err := cache.NewClient(ctx, cache.Config{Address: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type availabilityRow struct {
	Package   string `json:"package"`
	Remaining int    `json:"remaining"`
}

func TestCacheService(t *testing.T) {
	client := startRedis(t)
	svc := cache.NewService(client)
	ctx := context.Background()

	var got []availabilityRow
	assert.True(t, errors.Is(svc.Get(ctx, "sorso:availability:event:1", &got), cache.ErrCacheMiss))

	rows := []availabilityRow{{"premium", 2}, {"base", 20}}
	require.NoError(t, svc.Set(ctx, "sorso:availability:event:1", rows, time.Minute))
	require.NoError(t, svc.Get(ctx, "sorso:availability:event:1", &got))
	assert.Equal(t, rows, got)
	assert.True(t, svc.Exists(ctx, "sorso:availability:event:1"))

	require.NoError(t, svc.Delete(ctx, "sorso:availability:event:1"))
	assert.False(t, svc.Exists(ctx, "sorso:availability:event:1"))

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return rows, nil
	}
	require.NoError(t, svc.GetOrSet(ctx, "sorso:events:active", time.Minute, fetch, &got))
	require.NoError(t, svc.GetOrSet(ctx, "sorso:events:active", time.Minute, fetch, &got))
	assert.Equal(t, 1, calls)
	assert.Equal(t, rows, got)

	for i := 0; i < 250; i++ {
		require.NoError(t, svc.Set(ctx, fmt.Sprintf("sorso:events:detail:uuid:%d", i), i, time.Minute))
	}
	require.NoError(t, svc.Set(ctx, "sorso:auth:revoked:jti:x", 1, time.Minute))
	require.NoError(t, svc.DeletePattern(ctx, "sorso:events:*"))

	n, err := client.Keys(ctx, "sorso:events:*").Result()
	require.NoError(t, err)
	assert.Empty(t, n)
	assert.True(t, svc.Exists(ctx, "sorso:auth:revoked:jti:x"))
	assert.NoError(t, svc.Ping(ctx))
}

func TestSlidingWindowLimiter(t *testing.T) {
	client := startRedis(t)
	rl := ratelimit.NewRateLimiter(client, &ratelimit.Config{
		Enabled:             true,
		WindowDuration:      time.Minute,
		ReservationRequests: 3,
		KeyPrefix:           "sorso:ratelimit:",
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := rl.IsAllowed(ctx, "203.0.113.7", ratelimit.RateLimitTypeReservation)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := rl.IsAllowed(ctx, "203.0.113.7", ratelimit.RateLimitTypeReservation)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	// other clients have their own window
	res, err = rl.IsAllowed(ctx, "198.51.100.4", ratelimit.RateLimitTypeReservation)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
