// Package ratelimit implements the sliding-window request limiter applied
// to API routes.
package ratelimit

import (
	"context"
	"time"
)

// KeyPrefix namespaces limiter keys in a shared backend.
const KeyPrefix = "yt-extractor"

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time // when the oldest request in the window expires
}

// RetryAfter is the whole number of seconds until Reset, at least 1.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int((d.Reset.Sub(now) + time.Second - 1) / time.Second)
	return max(secs, 1)
}

// Limiter counts requests per key. Implementations are safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
