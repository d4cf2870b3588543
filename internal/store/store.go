// Package store provides the shared key/value store with per-key expiry
// that backs every stateful component of the admission pipeline.
//
// The store is accessed concurrently by many request-handling workers
// with no distributed lock. Check-then-increment sequences therefore
// have a race window where two concurrent requests from the same
// identity can both pass a check before either increment is visible.
// This is an accepted approximate-limiting guarantee, not an exact one.
package store

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Key namespaces. Kept as distinct prefixes so operators can inspect or
// flush them selectively.
const (
	KeyRateLimit  = "rate_limit:"
	KeyBurst      = "burst:"
	KeyAutoBlock  = "auto_block:"
	KeySuspicious = "suspicious:"
	KeyBannedIP   = "banned_ip:"
	KeyAuditFreq  = "audit:freq:"
)

// ErrUnavailable marks an infrastructure failure of the backing store.
// Callers decide fail-open vs fail-closed; the store only reports.
var ErrUnavailable = errors.New("keyed ttl store unavailable")

// Store is a key/value store with per-key TTL. Absence of a key is
// semantically "not banned / zero count / zero score"; there is no
// explicit delete path.
type Store interface {
	// Get returns the raw value for key, or found=false after expiry or
	// if the key was never set.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Increment creates the key with value 1 and the given ttl if absent,
	// otherwise increments it. The ttl is refreshed on every call, giving
	// counters sliding-window semantics.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Count reads key as a counter. Absent keys count as zero.
func Count(ctx context.Context, s Store, key string) (int64, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Exists reports whether key holds a live value.
func Exists(ctx context.Context, s Store, key string) (bool, error) {
	_, found, err := s.Get(ctx, key)
	return found, err
}
