package engines

import (
	"net/http"
	"testing"
	"time"
)

func TestRateBudgetUpdateFromHeaders(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		headers       map[string]string
		wantRemaining int
		wantResetAt   time.Time
	}{
		{
			name: "float values parse",
			headers: map[string]string{
				"x-ratelimit-remaining": "850.0",
				"x-ratelimit-reset":     "120",
				"x-ratelimit-used":      "150.0",
			},
			wantRemaining: 850,
			wantResetAt:   base.Add(120 * time.Second),
		},
		{
			name: "malformed remaining keeps previous value",
			headers: map[string]string{
				"x-ratelimit-remaining": "garbage",
				"x-ratelimit-reset":     "60",
			},
			wantRemaining: 1000,
			wantResetAt:   base.Add(60 * time.Second),
		},
		{
			name:          "missing headers change nothing",
			headers:       map[string]string{},
			wantRemaining: 1000,
			wantResetAt:   time.Time{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			budget := NewRateBudget()
			budget.now = func() time.Time { return base }

			h := http.Header{}
			for key, value := range tc.headers {
				h.Set(key, value)
			}
			budget.UpdateFromHeaders(h)

			if got := budget.Remaining(); got != tc.wantRemaining {
				t.Errorf("remaining = %d, want %d", got, tc.wantRemaining)
			}
			if got := budget.ResetAt(); !got.Equal(tc.wantResetAt) {
				t.Errorf("resetAt = %v, want %v", got, tc.wantResetAt)
			}
		})
	}
}

func TestRateBudgetShouldThrottle(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		remaining int
		resetAt   time.Time
		now       time.Time
		want      bool
	}{
		{"fresh budget never throttles", 1000, time.Time{}, base, false},
		{"below floor before reset", 49, base.Add(time.Minute), base, true},
		{"at floor before reset", 50, base.Add(time.Minute), base, false},
		{"below floor after reset passed", 10, base.Add(-time.Second), base, false},
		{"zero remaining before reset", 0, base.Add(time.Hour), base, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			budget := NewRateBudget()
			budget.remaining = tc.remaining
			budget.resetAt = tc.resetAt
			budget.now = func() time.Time { return tc.now }

			if got := budget.ShouldThrottle(); got != tc.want {
				t.Errorf("ShouldThrottle() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRateBudgetOptimisticResetThenNewReading(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base

	budget := NewRateBudget()
	budget.now = func() time.Time { return now }

	h := http.Header{}
	h.Set("x-ratelimit-remaining", "5")
	h.Set("x-ratelimit-reset", "30")
	budget.UpdateFromHeaders(h)

	if !budget.ShouldThrottle() {
		t.Fatal("should throttle with 5 remaining before reset")
	}

	// Past the reported reset the quota counts as refreshed.
	now = base.Add(31 * time.Second)
	if budget.ShouldThrottle() {
		t.Fatal("should not throttle after reset time passed")
	}

	// A later response reporting a healthy quota lifts the limit for real.
	h = http.Header{}
	h.Set("x-ratelimit-remaining", "999")
	h.Set("x-ratelimit-reset", "600")
	budget.UpdateFromHeaders(h)
	if budget.ShouldThrottle() {
		t.Fatal("should not throttle with healthy remaining")
	}
}
