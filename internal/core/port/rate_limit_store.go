package port

import (
	"context"
	"time"
)

// RateLimitStore keeps timestamped attempts per limiter key. Keys are "<rule>:<subject>", where
// the subject is a client address or "email:<normalized address>" for code redemption limits.
// Windows are (reference-window, reference]; each rule passes its own window.
type RateLimitStore interface {
	// TrimWindow forgets attempts that have left the window.
	TrimWindow(ctx context.Context, key string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, key string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, key string, at time.Time) error
	// OldestAttempt reports false when the window is empty; the limiter derives Retry-After from it.
	OldestAttempt(ctx context.Context, key string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
