// Package ratelimit implements a sliding-window attempt counter shared by
// the login and reveal flows.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrLimited is returned (wrapped) by callers when an attempt budget is
// exhausted.
var ErrLimited = errors.New("ratelimit: too many attempts")

type bucket struct {
	mu    sync.Mutex
	times []time.Time
}

// Limiter keeps one timestamp bucket per key. Keys are arbitrary strings
// such as "login:<email>" or "reveal:<accountID>". Buckets for distinct
// keys never contend; a bucket serializes attempts for its own key.
// Buckets are not proactively deleted: the key space is bounded by active
// accounts.
type Limiter struct {
	buckets sync.Map // key string -> *bucket
	now     func() time.Time
}

func New() *Limiter {
	return &Limiter{now: time.Now}
}

// TryConsume records an attempt for key and reports whether it is allowed.
// Attempts older than window are discarded first; if maxAttempts remain
// within the window the call is denied without being recorded, so a
// burst cannot extend its own lockout.
func (l *Limiter) TryConsume(key string, window time.Duration, maxAttempts int) bool {
	v, _ := l.buckets.LoadOrStore(key, &bucket{})
	b := v.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)
	keep := b.times[:0]
	for _, ts := range b.times {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	b.times = keep

	if len(b.times) >= maxAttempts {
		return false
	}
	b.times = append(b.times, now)
	return true
}
