package security

import (
	"context"
	"strings"
	"time"

	"github.com/hyuon7877/onesquare-sub001/internal/config"
	"github.com/hyuon7877/onesquare-sub001/internal/logger"
	"github.com/hyuon7877/onesquare-sub001/internal/store"
)

// RetryAfterSeconds is advertised on every rate-limit rejection,
// including burst rejections.
const RetryAfterSeconds = 60

// RateLimiter bounds request volume per identity with two independent
// counters: a 60-second window against the tier limit and a 1-second
// burst window. Counters live in the shared store, so enforcement is
// approximate under concurrency.
type RateLimiter struct {
	store       store.Store
	base        int
	burst       int
	heavyLimit  int
	heavyPaths  []string
	mainWindow  time.Duration
	burstWindow time.Duration
}

// NewRateLimiter builds a RateLimiter from security configuration.
func NewRateLimiter(s store.Store, cfg config.SecurityConfig) *RateLimiter {
	return &RateLimiter{
		store:       s,
		base:        cfg.RateLimitPerMinute,
		burst:       cfg.RateLimitBurst,
		heavyLimit:  cfg.HeavyPathLimit,
		heavyPaths:  cfg.HeavyPaths,
		mainWindow:  time.Minute,
		burstWindow: time.Second,
	}
}

// limitFor picks the per-minute limit. Heavy endpoints get a fixed
// lower limit independent of the auth tier; authenticated clients get
// twice the base limit.
func (rl *RateLimiter) limitFor(id Identity, path string) int64 {
	for _, prefix := range rl.heavyPaths {
		if strings.HasPrefix(path, prefix) {
			return int64(rl.heavyLimit)
		}
	}
	if id.Authenticated {
		return int64(rl.base) * 2
	}
	return int64(rl.base)
}

// Check enforces both windows for one request. It returns *RateLimited
// on rejection and nil otherwise. Store failures fail open: a broken
// cache must not take the whole application down with it.
//
// The main counter is incremented before the burst check runs, so a
// request rejected by the burst window still consumes main-window
// budget.
func (rl *RateLimiter) Check(ctx context.Context, id Identity, path string) error {
	limit := rl.limitFor(id, path)

	mainKey := store.KeyRateLimit + id.Key
	count, err := store.Count(ctx, rl.store, mainKey)
	if err != nil {
		rl.failOpen(err, id)
		return nil
	}
	if count >= limit {
		return &RateLimited{}
	}
	if _, err := rl.store.Increment(ctx, mainKey, rl.mainWindow); err != nil {
		rl.failOpen(err, id)
		return nil
	}

	burstKey := store.KeyBurst + id.Key
	burstCount, err := store.Count(ctx, rl.store, burstKey)
	if err != nil {
		rl.failOpen(err, id)
		return nil
	}
	if burstCount >= int64(rl.burst) {
		return &RateLimited{Burst: true}
	}
	if _, err := rl.store.Increment(ctx, burstKey, rl.burstWindow); err != nil {
		rl.failOpen(err, id)
	}
	return nil
}

func (rl *RateLimiter) failOpen(err error, id Identity) {
	logger.WithFields(map[string]interface{}{
		"client": id.Key,
		"error":  err.Error(),
	}).Warn("rate limit store unavailable, failing open")
}
