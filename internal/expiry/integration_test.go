package expiry

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelab/redis-postgres-demo/internal/config"
)

// End-to-end against a real Redis server: set keys with TTLs and wait
// for the server to report their expiration. Expiration timing depends
// on the server's active-expire sampling, so the waits are generous.
func TestListener_Integration(t *testing.T) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Skipf("Config not available: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	p := newProbe()
	listener := NewListener(client).OnKeyExpire(p.callback)
	defer listener.Stop()

	require.NoError(t, listener.Start(context.Background()))

	// Give the pattern subscription a moment to establish
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, listener.SetWithExpiration(ctx, "session:A", "a", 1*time.Second))
	require.NoError(t, listener.SetWithExpiration(ctx, "cache:B", "b", 2*time.Second))
	require.NoError(t, listener.SetWithExpiration(ctx, "lock:C", "c", 3*time.Second))

	require.Eventually(t, func() bool {
		return p.count("session:A") == 1 &&
			p.count("cache:B") == 1 &&
			p.count("lock:C") == 1
	}, 30*time.Second, 250*time.Millisecond, "expiration events never arrived")

	assert.Equal(t, 1, p.count("session:A"))
	assert.Equal(t, 1, p.count("cache:B"))
	assert.Equal(t, 1, p.count("lock:C"))
}
