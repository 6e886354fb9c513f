package otp

import (
	"context"
	"log/slog"
	"time"
)

// IssuanceCounter is the slice of the OTP store the limiter needs.
type IssuanceCounter interface {
	CountCreatedSince(ctx context.Context, email string, since time.Time) (int, error)
}

// Limiter bounds code issuance per email over a trailing wall-clock window,
// counted across all share tuples.
type Limiter struct {
	counter IssuanceCounter
	window  time.Duration
	max     int
	now     func() time.Time
}

func NewLimiter(counter IssuanceCounter, window time.Duration, max int) *Limiter {
	return &Limiter{counter: counter, window: window, max: max, now: time.Now}
}

// Allow reports whether another code may be issued for email. A failed count
// query allows the request: blocking legitimate users on a store hiccup costs
// more than the brief extra issuance headroom.
func (l *Limiter) Allow(ctx context.Context, email string) bool {
	n, err := l.counter.CountCreatedSince(ctx, email, l.now().Add(-l.window))
	if err != nil {
		slog.Warn("otp rate limit check failed, allowing request", "email", email, "err", err)
		return true
	}
	return n < l.max
}
