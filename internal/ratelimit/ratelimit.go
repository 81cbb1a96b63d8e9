// Package ratelimit throttles customer operations per authenticated
// account.
package ratelimit

import (
	"context"
	"time"
)

// Result reports the outcome of one limiter check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a request identified by key may proceed within
// the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}
