package engines

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const rateSafetyFloor = 50

// RateBudget tracks the request quota Reddit reports in its x-ratelimit-*
// response headers. It trusts the most recent response only: a newer
// reading replaces the previous one unconditionally.
type RateBudget struct {
	mu        sync.Mutex
	remaining int
	resetAt   time.Time
	used      int
	floor     int
	now       func() time.Time
}

func NewRateBudget() *RateBudget {
	return &RateBudget{
		remaining: 1000,
		floor:     rateSafetyFloor,
		now:       time.Now,
	}
}

// ShouldThrottle reports whether the next request should be skipped to
// protect the remaining quota. Once the reported reset time passes the
// quota counts as refreshed even without a new response.
func (b *RateBudget) ShouldThrottle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.now().After(b.resetAt) {
		return false
	}
	return b.remaining < b.floor
}

// UpdateFromHeaders applies the x-ratelimit-* values of a response.
// Reddit sends them as floats. A value that does not parse is ignored
// and the previous reading kept.
func (b *RateBudget) UpdateFromHeaders(h http.Header) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if v := h.Get("x-ratelimit-remaining"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			b.remaining = int(f)
		}
	}
	if v := h.Get("x-ratelimit-reset"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			b.resetAt = b.now().Add(time.Duration(f) * time.Second)
		}
	}
	if v := h.Get("x-ratelimit-used"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			b.used = int(f)
		}
	}
}

func (b *RateBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

func (b *RateBudget) ResetAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resetAt
}

func (b *RateBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}
