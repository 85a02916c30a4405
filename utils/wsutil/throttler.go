package wsutil

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrOverSendBudget is returned by TrySend when the connection's send budget
// is exhausted. The frame is dropped, not queued.
var ErrOverSendBudget = errors.New("frame dropped: over gateway send budget")

// NewSendLimiter allots the documented 120 events per 60 seconds per
// connection.
func NewSendLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/120), 120)
}

// NewDialLimiter guards against dial loops.
func NewDialLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(5*time.Second), 1)
}
