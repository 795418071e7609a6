package auth

import (
	"sync"
	"time"

	"github.com/dam2452/ranchbot/pkg/types"
)

// window tracks one identity's request count inside its current window.
type window struct {
	start time.Time
	count int
}

// Limiter caps requests per identity inside a rolling window. Separate
// Limiter instances serve separate scopes (command windows vs. auth
// windows). Counters are incremented atomically under the mutex; stale
// windows are dropped lazily on the next request and by Sweep.
type Limiter struct {
	limit    int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter creates a limiter allowing limit requests per interval per
// identity.
func NewLimiter(limit int, interval time.Duration) *Limiter {
	return &Limiter{
		limit:    limit,
		interval: interval,
		now:      time.Now,
		windows:  make(map[string]*window),
	}
}

// Allow records one request for the identity and rejects it when the
// window is already full. Exempt tiers are never counted.
func (l *Limiter) Allow(identity types.UserIdentity) error {
	if identity.Tier.Exempt() {
		return nil
	}
	return l.AllowID(identity.UserID)
}

// AllowID is Allow without tier exemption, for scopes keyed by raw
// identity (e.g. auth attempts before a tier is known).
func (l *Limiter) AllowID(id string) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[id]
	if !ok || now.Sub(w.start) >= l.interval {
		l.windows[id] = &window{start: now, count: 1}
		return nil
	}

	if w.count >= l.limit {
		return types.NewError(types.KindRateLimited, "rate limit exceeded, slow down")
	}
	w.count++
	return nil
}

// Sweep drops windows that ended before now. Correctness only needs the
// lazy check in AllowID; this reclaims space for identities that went
// quiet.
func (l *Limiter) Sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for id, w := range l.windows {
		if now.Sub(w.start) >= l.interval {
			delete(l.windows, id)
		}
	}
}
