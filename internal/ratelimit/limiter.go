// Package ratelimit implements fixed-window rate limiting over Redis.
// Windows are UTC-aligned so resets are deterministic: the minute window
// rolls at :00 seconds, the day window at 00:00 UTC.
package ratelimit

import (
	"context"
	"time"
)

// Granularity selects the counting window.
type Granularity string

const (
	PerMinute Granularity = "minute"
	PerDay    Granularity = "day"
)

// Duration returns the window length.
func (g Granularity) Duration() time.Duration {
	if g == PerDay {
		return 24 * time.Hour
	}
	return time.Minute
}

// WindowStart returns the UTC-aligned start of the window containing t.
func (g Granularity) WindowStart(t time.Time) time.Time {
	return t.UTC().Truncate(g.Duration())
}

// Result is the outcome of one check-and-increment.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int

	// RetryAfter is the time left in the active window; meaningful only
	// when the request was denied.
	RetryAfter time.Duration
}

// Limiter performs an atomic check-and-increment against a counter
// identified by key, bounded by limit within the granularity's current
// window. A limit of zero admits nothing.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, granularity Granularity) (*Result, error)
}
