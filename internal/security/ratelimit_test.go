package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyuon7877/onesquare-sub001/internal/store"
)

// failingStore simulates an unreachable shared cache.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, store.ErrUnavailable
}
func (failingStore) Set(context.Context, string, string, time.Duration) error {
	return store.ErrUnavailable
}
func (failingStore) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, store.ErrUnavailable
}

func anon(ip string) Identity  { return Identity{Key: "ip:" + ip, IP: ip} }
func user(sub string) Identity { return Identity{Key: "user:" + sub, Authenticated: true} }

func TestRateLimiterWindow(t *testing.T) {
	ctx := context.Background()
	cfg := testSecurityConfig()
	cfg.RateLimitPerMinute = 60
	cfg.RateLimitBurst = 1000 // keep the burst window out of the way
	rl := NewRateLimiter(store.NewMemoryStore(), cfg)

	id := anon("198.51.100.7")
	for i := 1; i <= 60; i++ {
		require.NoError(t, rl.Check(ctx, id, "/api/v1/items"), "request %d should pass", i)
	}

	err := rl.Check(ctx, id, "/api/v1/items")
	var limited *RateLimited
	require.ErrorAs(t, err, &limited)
	assert.False(t, limited.Burst)
	assert.Equal(t, ReasonRateLimited, limited.ReasonLabel())
}

func TestRateLimiterWindowResets(t *testing.T) {
	ctx := context.Background()
	cfg := testSecurityConfig()
	cfg.RateLimitPerMinute = 2
	cfg.RateLimitBurst = 1000
	rl := NewRateLimiter(store.NewMemoryStore(), cfg)
	rl.mainWindow = 40 * time.Millisecond

	id := anon("198.51.100.8")
	require.NoError(t, rl.Check(ctx, id, "/"))
	require.NoError(t, rl.Check(ctx, id, "/"))
	require.Error(t, rl.Check(ctx, id, "/"))

	time.Sleep(80 * time.Millisecond)
	assert.NoError(t, rl.Check(ctx, id, "/"), "counter should reset after the window expires")
}

func TestRateLimiterBurst(t *testing.T) {
	ctx := context.Background()
	cfg := testSecurityConfig()
	cfg.RateLimitPerMinute = 1000
	cfg.RateLimitBurst = 3
	st := store.NewMemoryStore()
	rl := NewRateLimiter(st, cfg)

	id := anon("198.51.100.9")
	for i := 1; i <= 3; i++ {
		require.NoError(t, rl.Check(ctx, id, "/"), "request %d should pass", i)
	}

	err := rl.Check(ctx, id, "/")
	var limited *RateLimited
	require.ErrorAs(t, err, &limited)
	assert.True(t, limited.Burst)
	assert.Equal(t, ReasonBurstLimited, limited.ReasonLabel())

	// The main counter is charged even for the burst-rejected request.
	n, err2 := store.Count(ctx, st, store.KeyRateLimit+id.Key)
	require.NoError(t, err2)
	assert.Equal(t, int64(4), n)
}

func TestRateLimiterTiers(t *testing.T) {
	ctx := context.Background()
	cfg := testSecurityConfig()
	cfg.RateLimitPerMinute = 2
	cfg.RateLimitBurst = 1000
	rl := NewRateLimiter(store.NewMemoryStore(), cfg)

	anonID := anon("203.0.113.5")
	require.NoError(t, rl.Check(ctx, anonID, "/"))
	require.NoError(t, rl.Check(ctx, anonID, "/"))
	assert.Error(t, rl.Check(ctx, anonID, "/"), "anonymous tier stops at the base limit")

	authID := user("42")
	for i := 1; i <= 4; i++ {
		require.NoError(t, rl.Check(ctx, authID, "/"), "authenticated request %d should pass", i)
	}
	assert.Error(t, rl.Check(ctx, authID, "/"), "authenticated tier stops at twice the base limit")
}

func TestRateLimiterHeavyPaths(t *testing.T) {
	ctx := context.Background()
	cfg := testSecurityConfig()
	cfg.RateLimitPerMinute = 100
	cfg.RateLimitBurst = 1000
	cfg.HeavyPathLimit = 1
	cfg.HeavyPaths = []string{"/api/v1/reports"}
	rl := NewRateLimiter(store.NewMemoryStore(), cfg)

	// Heavy limit applies regardless of the auth tier.
	id := user("7")
	require.NoError(t, rl.Check(ctx, id, "/api/v1/reports/monthly"))
	assert.Error(t, rl.Check(ctx, id, "/api/v1/reports/monthly"))

	// Other endpoints still use the tier limit.
	assert.NoError(t, rl.Check(ctx, id, "/api/v1/items"))
}

func TestRateLimiterFailsOpen(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(failingStore{}, testSecurityConfig())

	for i := 0; i < 100; i++ {
		if err := rl.Check(ctx, anon("198.51.100.10"), "/"); err != nil {
			var limited *RateLimited
			if errors.As(err, &limited) {
				t.Fatalf("request must not be limited while the store is down")
			}
			t.Fatalf("unexpected error: %v", err)
		}
	}
}
