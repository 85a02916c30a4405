// Package wsutil provides abstractions around the Websocket, including rate
// limits.
package wsutil

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-csync"
	"golang.org/x/time/rate"
)

var (
	// WSTimeout is the timeout for connecting and writing to the Websocket,
	// before the gateway cancels and fails.
	WSTimeout = 15 * time.Second
	// WSBuffer is the size of the Event channel. This has to be at least 1
	// to make space for the first Event: Ready or Resumed.
	WSBuffer = 10
)

// Event is a single frame received from the connection. Error is non-nil if
// Data is nil.
type Event struct {
	Data []byte

	Error error
}

// Websocket is a wrapper around a websocket Conn with thread safety and rate
// limiting for sending and throttling.
type Websocket struct {
	mutex  csync.Mutex
	conn   Connection
	addr   string
	closed bool

	// Constants. These must not be changed after the Websocket instance is
	// used once, as they are not thread-safe.

	// Timeout for connecting and writing to the Websocket, uses the global
	// WSTimeout by default.
	Timeout time.Duration

	SendLimiter *rate.Limiter
	DialLimiter *rate.Limiter
}

// New creates a default Websocket with the given address.
func New(addr string) *Websocket {
	return NewCustom(NewConn(), addr)
}

// NewCustom creates a new undialed Websocket with the given Connection
// driver.
func NewCustom(conn Connection, addr string) *Websocket {
	return &Websocket{
		conn:   conn,
		addr:   addr,
		closed: true,

		Timeout: WSTimeout,

		SendLimiter: NewSendLimiter(),
		DialLimiter: NewDialLimiter(),
	}
}

// Dial waits until the dial rate limiter allows, then dials the websocket.
func (ws *Websocket) Dial(ctx context.Context) error {
	if ws.Timeout > 0 {
		tctx, cancel := context.WithTimeout(ctx, ws.Timeout)
		defer cancel()

		ctx = tctx
	}

	if err := ws.DialLimiter.Wait(ctx); err != nil {
		// Expired, fatal error
		return errors.Wrap(err, "failed to wait for dial limit")
	}

	if err := ws.mutex.CLock(ctx); err != nil {
		return err
	}
	defer ws.mutex.Unlock()

	if !ws.closed {
		ws.conn.Close()
	}

	if err := ws.conn.Dial(ctx, ws.addr); err != nil {
		return errors.Wrap(err, "failed to dial")
	}

	ws.closed = false

	// A new connection gets a fresh send budget.
	ws.SendLimiter = NewSendLimiter()

	return nil
}

// Listen returns the inner event channel, or nil if the Websocket is not
// alive.
func (ws *Websocket) Listen() <-chan Event {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if ws.closed {
		return nil
	}

	return ws.conn.Listen()
}

// Send sends b over the Websocket without a timeout, waiting for the send
// limiter.
func (ws *Websocket) Send(b []byte) error {
	return ws.SendCtx(context.Background(), b)
}

// SendCtx sends b over the Websocket with a deadline, waiting for the send
// limiter. It closes the internal Websocket if the send errors out.
func (ws *Websocket) SendCtx(ctx context.Context, b []byte) error {
	if err := ws.SendLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "SendLimiter failed")
	}

	return ws.sendLocked(ctx, b)
}

// TrySend sends b only if the send limiter has budget left; over-budget
// frames are dropped and ErrOverSendBudget returned. It is used for
// caller-initiated gateway commands, which must never starve heartbeats.
func (ws *Websocket) TrySend(ctx context.Context, b []byte) error {
	if !ws.SendLimiter.Allow() {
		return ErrOverSendBudget
	}

	return ws.sendLocked(ctx, b)
}

func (ws *Websocket) sendLocked(ctx context.Context, b []byte) error {
	if err := ws.mutex.CLock(ctx); err != nil {
		return err
	}
	defer ws.mutex.Unlock()

	if ws.closed {
		return ErrWebsocketClosed
	}

	if err := ws.conn.Send(ctx, b); err != nil {
		ws.close()
		return err
	}

	return nil
}

// Close closes the websocket connection with close code 1000. It assumes
// that the Websocket is closed even when it returns an error. If the
// Websocket was already closed before, ErrWebsocketClosed will be returned.
func (ws *Websocket) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	return ws.close()
}

// CloseWith closes the websocket connection with the given close code. A
// non-1000 code tells the server to keep the session alive for resuming.
func (ws *Websocket) CloseWith(code int) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if ws.closed {
		return ErrWebsocketClosed
	}

	ws.closed = true

	if coder, ok := ws.conn.(interface{ CloseWith(int) error }); ok {
		return coder.CloseWith(code)
	}

	return ws.conn.Close()
}

func (ws *Websocket) close() error {
	if ws.closed {
		return ErrWebsocketClosed
	}

	err := ws.conn.Close()
	ws.closed = true
	return err
}
