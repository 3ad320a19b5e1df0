// Package ratelimit implements the RateLimiter: a sliding-window
// request counter keyed by client identifier, stored through the
// CacheAdapter contract so the counter state is sharable with
// whatever cache backend is installed process-wide.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/kestrel-run/modelmesh/pkg/cache"
)

// Limits configures one rate-limit window.
type Limits struct {
	MaxRequests   int
	WindowSeconds int
}

// Result is the outcome of a Check call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAtMS int64
}

type windowEntry struct {
	Count     int   `json:"count"`
	ResetAtMS int64 `json:"reset_at_ms"`
}

// Limiter checks and records per-client request counts against a sliding
// window, through a CacheAdapter.
type Limiter struct {
	store     cache.Adapter
	namespace string
}

// New creates a Limiter storing its counters in store under namespace
// (e.g. "ratelimit"), so multiple call sites can share one cache without
// key collisions.
func New(store cache.Adapter, namespace string) *Limiter {
	return &Limiter{store: store, namespace: namespace}
}

// Check applies the sliding-window algorithm for clientID against limits.
// Any cache failure fails open, because a stalled limiter must not block
// legitimate traffic: a failed read is indistinguishable from a miss and
// starts a fresh window (allowed=true, remaining=max-1), and a failed write
// is ignored. Remaining is never reported as max.
func (l *Limiter) Check(ctx context.Context, clientID string, limits Limits) Result {
	key := fmt.Sprintf("%s:%s:%d", l.namespace, clientID, limits.WindowSeconds)
	windowMS := int64(limits.WindowSeconds) * 1000
	now := time.Now().UnixMilli()

	// The CacheAdapter contract collapses every storage failure into
	// ErrNotFound on Get, so a miss here starts a fresh window — the
	// same fail-open outcome the rate limiter itself would choose.
	raw, err := l.store.Get(ctx, key)
	if err != nil {
		return l.startWindow(ctx, key, limits, now, windowMS)
	}

	var entry windowEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return l.startWindow(ctx, key, limits, now, windowMS)
	}

	if now >= entry.ResetAtMS {
		return l.startWindow(ctx, key, limits, now, windowMS)
	}

	if entry.Count >= limits.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetAtMS: entry.ResetAtMS}
	}

	entry.Count++
	remainingWindow := time.Duration(entry.ResetAtMS-now) * time.Millisecond
	ttl := time.Duration(math.Ceil(remainingWindow.Seconds())) * time.Second
	_ = l.write(ctx, key, entry, ttl)

	return Result{
		Allowed:   true,
		Remaining: limits.MaxRequests - entry.Count,
		ResetAtMS: entry.ResetAtMS,
	}
}

func (l *Limiter) startWindow(ctx context.Context, key string, limits Limits, now, windowMS int64) Result {
	entry := windowEntry{Count: 1, ResetAtMS: now + windowMS}
	_ = l.write(ctx, key, entry, time.Duration(limits.WindowSeconds)*time.Second)
	return Result{
		Allowed:   true,
		Remaining: limits.MaxRequests - 1,
		ResetAtMS: entry.ResetAtMS,
	}
}

func (l *Limiter) write(ctx context.Context, key string, entry windowEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, key, data, ttl)
}
