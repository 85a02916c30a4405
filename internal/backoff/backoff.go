// Package backoff provides an exponential-backoff implementation partially
// taken from jpillora/backoff.
package backoff

import (
	"math"
	"sync/atomic"
	"time"
)

const factor = 2

// Backoff is a time.Duration counter, starting at Min. After every call to
// Next the current timing is multiplied by the factor, but it never exceeds
// Max.
type Backoff struct {
	min, max float64 // seconds
	attempt  int32
}

// NewBackoff creates a new backoff time.Duration counter.
func NewBackoff(min, max time.Duration) Backoff {
	return Backoff{
		min: min.Seconds(),
		max: max.Seconds(),
	}
}

// Next returns the next backoff duration.
func (b *Backoff) Next() time.Duration {
	return b.forAttempt(atomic.AddInt32(&b.attempt, 1) - 1)
}

// Reset rewinds the counter to the first attempt.
func (b *Backoff) Reset() {
	atomic.StoreInt32(&b.attempt, 0)
}

func (b *Backoff) forAttempt(attempt int32) time.Duration {
	if b.min >= b.max {
		return duration(b.max)
	}

	if attempt < 0 {
		attempt = math.MaxInt32
	}

	dur := b.min * math.Pow(factor, float64(attempt))

	if dur < b.min {
		return duration(b.min)
	}
	if dur > b.max {
		return duration(b.max)
	}

	return duration(dur)
}

// duration converts a seconds float64 to time.Duration without losing
// accuracy.
func duration(secs float64) time.Duration {
	whole, frac := math.Modf(secs)
	return (time.Duration(whole) * time.Second) + time.Duration(frac*float64(time.Second))
}
