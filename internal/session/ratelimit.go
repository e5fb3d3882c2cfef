package session

import (
	"time"

	"golang.org/x/time/rate"
)

// penaltyLimiter layers the spec's exponential-backoff penalty ladder on top
// of a token bucket. The bucket itself is the per-window admission gate —
// it holds maxPerMinute tokens and has a zero refill rate, so within one
// window it admits exactly maxPerMinute commands and denies the
// (maxPerMinute+1)th, like a hard counter would.
// It is rebuilt fresh every time the window rolls over or a backoff expires,
// since x/time/rate has no notion of penalty levels or a rejection back-off
// window — that part is hand-rolled here, grounded in the same retry/backoff
// shape used elsewhere in the pack.
type penaltyLimiter struct {
	maxPerMinute int

	bucket *rate.Limiter

	windowResetAt time.Time
	penaltyLevel  int
	backoffUntil  time.Time
}

func newPenaltyLimiter(maxPerMinute int) *penaltyLimiter {
	p := &penaltyLimiter{maxPerMinute: maxPerMinute}
	p.resetBucket()
	return p
}

func (p *penaltyLimiter) resetBucket() {
	p.bucket = rate.NewLimiter(0, p.maxPerMinute)
}

// admit implements spec.md §4.3 step 1. It returns ok=false with the number
// of seconds remaining in the back-off window when the caller must wait.
func (p *penaltyLimiter) admit(now time.Time) (ok bool, retryAfterSeconds int) {
	if now.Before(p.backoffUntil) {
		return false, int(p.backoffUntil.Sub(now).Seconds()) + 1
	}

	if p.windowResetAt.IsZero() || now.After(p.windowResetAt) {
		p.windowResetAt = now.Add(time.Minute)
		p.resetBucket()
		if p.penaltyLevel > 0 {
			p.penaltyLevel--
		}
	}

	if !p.bucket.AllowN(now, 1) {
		p.penaltyLevel++
		backoff := time.Duration(1<<uint(p.penaltyLevel)) * time.Second
		if backoff > 60*time.Second {
			backoff = 60 * time.Second
		}
		p.backoffUntil = now.Add(backoff)
		p.windowResetAt = time.Time{}
		return false, int(backoff.Seconds())
	}

	return true, 0
}
