// Package heart implements a general purpose pacemaker.
package heart

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ErrDead is returned by Pace when the previous beat was never answered.
var ErrDead = errors.New("no heartbeat replied")

// Pacemaker fires a pacer callback at a fixed heartrate and correlates each
// beat with its acknowledgement through a single outstanding flag, not
// identifiers.
type Pacemaker struct {
	// Heartrate is the received duration between heartbeats.
	Heartrate time.Duration

	ticker *time.Ticker
	Ticks  <-chan time.Time

	// Any callback that returns an error will stop the pacer.
	Pacer func(context.Context) error

	awaitingAck *atomic.Bool
}

func NewPacemaker(heartrate time.Duration, pacer func(context.Context) error) Pacemaker {
	p := Pacemaker{
		Heartrate:   heartrate,
		Pacer:       pacer,
		ticker:      time.NewTicker(heartrate),
		awaitingAck: atomic.NewBool(false),
	}
	p.Ticks = p.ticker.C

	return p
}

// Echo marks the outstanding beat as answered.
func (p *Pacemaker) Echo() {
	p.awaitingAck.Store(false)
}

// Dead returns true if the last beat was never echoed back.
func (p *Pacemaker) Dead() bool {
	return p.awaitingAck.Load()
}

// Stop stops the pacemaker, or it does nothing if the pacemaker is not
// started.
func (p *Pacemaker) Stop() {
	if p.ticker != nil {
		p.ticker.Stop()
	}
}

// Pace sends a heartbeat with the appropriate timeout for the context.
func (p *Pacemaker) Pace() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.Heartrate)
	defer cancel()

	return p.PaceCtx(ctx)
}

func (p *Pacemaker) PaceCtx(ctx context.Context) error {
	if p.Dead() {
		return ErrDead
	}

	if err := p.Pacer(ctx); err != nil {
		return err
	}

	p.awaitingAck.Store(true)

	return nil
}
