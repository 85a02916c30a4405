// Package rate implements the per-route REST quota bookkeeping: the
// server-advertised X-RateLimit guard and the local burst guard. Unlike a
// waiting limiter, Acquire refuses over-quota requests with a typed error so
// the dispatcher can surface them to continuations without blocking.
package rate

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/wavebird/concord/internal/moreatomic"
)

const (
	// BurstLimitSend and BurstLimitPeriod bound the client-side burst guard:
	// at most BurstLimitSend sends per BurstLimitPeriod to a single route.
	BurstLimitSend   = 5
	BurstLimitPeriod = time.Second

	// ResetGrace extends the advertised reset; requests are still refused
	// until this long after the reset instant. Discord's reset clocks skew.
	ResetGrace = 3 * time.Second
)

// RateLimitError refuses a request whose route has exhausted its
// server-advertised quota.
type RateLimitError struct {
	Route   string
	ResetIn time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited on %s, reset in %s", e.Route, e.ResetIn)
}

// LocalRateLimitError refuses a request that exceeded the client-side burst
// guard for its route.
type LocalRateLimitError struct {
	Route   string
	RetryIn time.Duration
}

func (e *LocalRateLimitError) Error() string {
	return fmt.Sprintf("local burst limit hit on %s, retry in %s", e.Route, e.RetryIn)
}

// Limiter tracks one quota record per (credential, route); a Limiter
// instance belongs to a single credential's client, so the map key is the
// route alone.
type Limiter struct {
	// Prefix is stripped off paths before route derivation, usually the
	// "/api/v6" base path.
	Prefix string

	bucketMu sync.Mutex
	buckets  map[string]*bucket
}

type bucket struct {
	lock  *moreatomic.CtxMutex
	burst *rate.Limiter

	limit     uint64
	remaining uint64
	reset     time.Time
}

func newBucket() *bucket {
	return &bucket{
		lock:      moreatomic.NewCtxMutex(),
		burst:     rate.NewLimiter(rate.Every(BurstLimitPeriod/BurstLimitSend), BurstLimitSend),
		remaining: 1,
	}
}

func NewLimiter(prefix string) *Limiter {
	return &Limiter{
		Prefix:  prefix,
		buckets: map[string]*bucket{},
	}
}

func (l *Limiter) getBucket(path string, store bool) *bucket {
	route := ParseRoute(strings.TrimPrefix(path, l.Prefix))

	l.bucketMu.Lock()
	defer l.bucketMu.Unlock()

	b, ok := l.buckets[route]
	if !ok && !store {
		return nil
	}

	if !ok {
		b = newBucket()
		l.buckets[route] = b
	}

	return b
}

// Acquire claims a slot on the path's route. On success the route stays
// locked until Release; a refusal unlocks immediately and returns either a
// *LocalRateLimitError or a *RateLimitError.
func (l *Limiter) Acquire(ctx context.Context, path string) error {
	route := ParseRoute(strings.TrimPrefix(path, l.Prefix))
	b := l.getBucket(path, true)

	if err := b.lock.Lock(ctx); err != nil {
		return err
	}

	if !b.burst.Allow() {
		b.lock.Unlock()
		return &LocalRateLimitError{
			Route:   route,
			RetryIn: BurstLimitPeriod,
		}
	}

	now := time.Now()

	if b.remaining == 0 {
		if now.Before(b.reset.Add(ResetGrace)) {
			resetIn := b.reset.Sub(now)
			if resetIn < 0 {
				resetIn = 0
			}

			b.lock.Unlock()
			return &RateLimitError{
				Route:   route,
				ResetIn: resetIn,
			}
		}

		// The advertised window has passed; restore the budget.
		if b.limit > 0 {
			b.remaining = b.limit
		} else {
			b.remaining = 1
		}
	}

	b.remaining--

	return nil
}

// Release updates the route's quota record from the response headers and
// unlocks the route. It must be called once per successful Acquire; calling
// it without one is a no-op.
func (l *Limiter) Release(path string, headers http.Header) error {
	b := l.getBucket(path, false)
	if b == nil {
		return nil
	}

	// TryUnlock because Release may be called when Acquire has refused.
	defer b.lock.TryUnlock()

	if headers == nil {
		return nil
	}

	var (
		limit      = headers.Get("X-RateLimit-Limit")
		remaining  = headers.Get("X-RateLimit-Remaining")
		reset      = headers.Get("X-RateLimit-Reset") // epoch seconds, may be fractional
		retryAfter = headers.Get("Retry-After")
	)

	switch {
	case reset != "":
		unix, err := strconv.ParseFloat(reset, 64)
		if err != nil {
			return errors.Wrap(err, "invalid reset "+reset)
		}

		sec := int64(unix)
		nsec := int64((unix - float64(sec)) * float64(time.Second))

		b.reset = time.Unix(sec, nsec)

	case retryAfter != "":
		i, err := strconv.Atoi(retryAfter)
		if err != nil {
			return errors.Wrapf(err, "invalid retryAfter %q", retryAfter)
		}

		b.reset = time.Now().Add(time.Duration(i) * time.Second)
	}

	if limit != "" {
		u, err := strconv.ParseUint(limit, 10, 64)
		if err != nil {
			return errors.Wrap(err, "invalid limit "+limit)
		}

		b.limit = u
	}

	if remaining != "" {
		u, err := strconv.ParseUint(remaining, 10, 64)
		if err != nil {
			return errors.Wrap(err, "invalid remaining "+remaining)
		}

		b.remaining = u
	}

	return nil
}
