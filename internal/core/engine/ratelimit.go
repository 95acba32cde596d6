package engine

import (
	"strings"
	"sync"
	"time"
)

// Defaults for per-user admission control.
const (
	DefaultMaxRequests = 10
	DefaultWindow      = time.Minute
)

// RateLimiter enforces a sliding-window request budget per user key.
//
// All operations on a key run under one mutex, so the check and the append
// in Admit form a single atomic step and Sweep never observes a half-updated
// timestamp list.
type RateLimiter struct {
	MaxRequests int
	Window      time.Duration
	Clock       func() time.Time

	mu      sync.Mutex
	entries map[string][]time.Time
}

// NewRateLimiter returns a limiter allowing maxRequests per window.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		MaxRequests: maxRequests,
		Window:      window,
		entries:     make(map[string][]time.Time),
	}
}

// Admit records one admission for key and reports whether it was allowed.
// A rejected call leaves the stored state unchanged apart from pruning.
func (r *RateLimiter) Admit(key string) bool {
	if r == nil {
		return true
	}
	key = normalizeKey(key)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	active := r.prune(key, now)
	if len(active) >= r.maxRequests() {
		return false
	}

	if r.entries == nil {
		r.entries = make(map[string][]time.Time)
	}
	r.entries[key] = append(active, now)
	return true
}

// Remaining returns how many admissions key has left in the current window.
func (r *RateLimiter) Remaining(key string) int {
	if r == nil {
		return 0
	}
	key = normalizeKey(key)

	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := r.maxRequests() - len(r.prune(key, r.now()))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetIn returns the time until the oldest recorded admission for key
// leaves the window, or zero when nothing is recorded.
func (r *RateLimiter) ResetIn(key string) time.Duration {
	if r == nil {
		return 0
	}
	key = normalizeKey(key)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	active := r.prune(key, now)
	if len(active) == 0 {
		return 0
	}

	oldest := active[0]
	for _, stamp := range active[1:] {
		if stamp.Before(oldest) {
			oldest = stamp
		}
	}
	wait := oldest.Add(r.window()).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Sweep drops every key whose admissions have all aged out of the window
// and returns the number of keys removed.
func (r *RateLimiter) Sweep() int {
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for key, stamps := range r.entries {
		if !r.anyInWindow(stamps, now) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// Tracked returns the number of keys currently holding state.
func (r *RateLimiter) Tracked() int {
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// prune returns the in-window timestamps for key and stores them back as a
// fresh slice. Stamps need not be ordered. Callers must hold r.mu.
func (r *RateLimiter) prune(key string, now time.Time) []time.Time {
	stamps, ok := r.entries[key]
	if !ok {
		return nil
	}

	active := make([]time.Time, 0, len(stamps))
	for _, stamp := range stamps {
		if r.inWindow(stamp, now) {
			active = append(active, stamp)
		}
	}
	if len(active) == len(stamps) {
		return stamps
	}
	if len(active) == 0 {
		delete(r.entries, key)
		return nil
	}
	r.entries[key] = active
	return active
}

func (r *RateLimiter) inWindow(stamp, now time.Time) bool {
	return now.Sub(stamp) < r.window()
}

func (r *RateLimiter) anyInWindow(stamps []time.Time, now time.Time) bool {
	for _, stamp := range stamps {
		if r.inWindow(stamp, now) {
			return true
		}
	}
	return false
}

func (r *RateLimiter) maxRequests() int {
	if r.MaxRequests <= 0 {
		return DefaultMaxRequests
	}
	return r.MaxRequests
}

func (r *RateLimiter) window() time.Duration {
	if r.Window <= 0 {
		return DefaultWindow
	}
	return r.Window
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

func normalizeKey(value string) string {
	return strings.TrimSpace(value)
}
