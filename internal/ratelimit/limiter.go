package ratelimit

import "context"

// Limiter gates a protected operation per client identity. Each protected
// operation gets its own Limiter instance with its own limit and window.
type Limiter interface {
	// Allow reports whether one more request is admitted for the key within
	// the current window. A denied request is rejected, never queued.
	Allow(ctx context.Context, key string) (bool, error)
}
