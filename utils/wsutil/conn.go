package wsutil

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// CopyBufferSize is used for the initial size of the internal WS' buffer.
var CopyBufferSize = 4096

// MaxCapUntilReset determines the maximum capacity before the bytes buffer
// is re-allocated, roughly quadruple CopyBufferSize.
var MaxCapUntilReset = CopyBufferSize * 4

// CloseDeadline controls the deadline to wait for sending the Close frame.
var CloseDeadline = time.Second

// ErrWebsocketClosed is returned if the websocket is already closed.
var ErrWebsocketClosed = errors.New("websocket is closed")

// CloseError is a server-initiated close. The engine maps its Code onto the
// reconnect policy.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("websocket closed with code %d", e.Code)
	}
	return fmt.Sprintf("websocket closed with code %d: %s", e.Code, e.Reason)
}

// ErrCloseCode extracts the close code carried by err, if any.
func ErrCloseCode(err error) (int, bool) {
	var closeErr *CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code, true
	}

	var wsErr *websocket.CloseError
	if errors.As(err, &wsErr) {
		return wsErr.Code, true
	}

	return 0, false
}

// Connection is an interface that abstracts around a generic Websocket
// driver.
type Connection interface {
	// Dial dials the address. Context needs to be passed in for timeout.
	// This method should also be re-usable after Close is called.
	Dial(context.Context, string) error

	// Listen sends over events constantly. Error will be non-nil if Data is
	// nil, so check for Error first.
	Listen() <-chan Event

	// Send allows the caller to send bytes. Thread safety is a requirement.
	Send(context.Context, []byte) error

	// Close closes the websocket connection with close code 1000. The
	// connection will not be reused.
	Close() error
}

// Conn is the default Websocket connection. Binary frames are zlib-inflated
// and then treated as text.
type Conn struct {
	mutex sync.Mutex

	Conn *websocket.Conn

	dialer *websocket.Dialer
	events chan Event
}

var _ Connection = (*Conn)(nil)

// NewConn creates a new default websocket connection with a default dialer.
func NewConn() *Conn {
	return NewConnWithDialer(&websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: WSTimeout,
		ReadBufferSize:   CopyBufferSize,
		WriteBufferSize:  CopyBufferSize,
	})
}

// NewConnWithDialer creates a new default websocket connection with a custom
// dialer.
func NewConnWithDialer(dialer *websocket.Dialer) *Conn {
	return &Conn{dialer: dialer}
}

func (c *Conn) Dial(ctx context.Context, addr string) error {
	conn, _, err := c.dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return errors.Wrap(err, "failed to dial WS")
	}

	events := make(chan Event, WSBuffer)
	go startReadLoop(conn, events)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.Conn = conn
	c.events = events

	return nil
}

func (c *Conn) Listen() <-chan Event {
	return c.events
}

// resetDeadline is used to reset the write deadline after using the
// context's.
var resetDeadline = time.Time{}

func (c *Conn) Send(ctx context.Context, b []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if d, ok := ctx.Deadline(); ok {
		c.Conn.SetWriteDeadline(d)
		defer c.Conn.SetWriteDeadline(resetDeadline)
	}

	return c.Conn.WriteMessage(websocket.TextMessage, b)
}

func (c *Conn) Close() error {
	return c.CloseWith(websocket.CloseNormalClosure)
}

// CloseWith closes the connection with the given close code. Reconnects use
// a non-1000 code so the server keeps the session resumable.
func (c *Conn) CloseWith(code int) error {
	// Acquire the write lock forever.
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Send the close frame before tearing the socket down; the deadline
	// keeps a dead peer from blocking us.
	msg := websocket.FormatCloseMessage(code, "")
	c.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(CloseDeadline))

	err := c.Conn.Close()

	// Flush all events before closing the channel. This will return as soon
	// as c.events is closed.
	for range c.events {
	}

	c.Conn = nil

	return err
}

// loopState is a thread-unsafe disposable state container for the read loop.
// It completely separates the read loop from any synchronization that
// doesn't involve the websocket connection itself.
type loopState struct {
	conn *websocket.Conn
	zlib io.ReadCloser
	buf  bytes.Buffer
}

func startReadLoop(conn *websocket.Conn, eventCh chan<- Event) {
	defer close(eventCh)

	state := loopState{conn: conn}
	state.buf.Grow(CopyBufferSize)

	for {
		b, err := state.handle()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}

			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}

			// Surface the close code so the engine can pick a reconnect
			// policy.
			var wsErr *websocket.CloseError
			if errors.As(err, &wsErr) {
				eventCh <- Event{nil, &CloseError{
					Code:   wsErr.Code,
					Reason: wsErr.Text,
				}}
				return
			}

			eventCh <- Event{nil, errors.Wrap(err, "WS error")}
			return
		}

		// If the payload length is 0, skip it.
		if len(b) == 0 {
			continue
		}

		eventCh <- Event{b, nil}
	}
}

func (state *loopState) handle() ([]byte, error) {
	t, r, err := state.conn.NextReader()
	if err != nil {
		return nil, err
	}

	if t == websocket.BinaryMessage {
		// Zlib-compressed payload.
		if state.zlib == nil {
			z, err := zlib.NewReader(r)
			if err != nil {
				return nil, errors.Wrap(err, "failed to create a zlib reader")
			}
			state.zlib = z
		} else {
			if err := state.zlib.(zlib.Resetter).Reset(r, nil); err != nil {
				return nil, errors.Wrap(err, "failed to reset zlib reader")
			}
		}

		defer state.zlib.Close()
		r = state.zlib
	}

	return state.readAll(r)
}

// readAll reads bytes into an existing buffer, copies them over, then wipes
// the old buffer.
func (state *loopState) readAll(r io.Reader) ([]byte, error) {
	defer state.buf.Reset()

	if _, err := state.buf.ReadFrom(r); err != nil {
		return nil, err
	}

	// Copy the bytes so we can empty the buffer for reuse.
	cpy := make([]byte, state.buf.Len())
	copy(cpy, state.buf.Bytes())

	// If the buffer's capacity is over the limit, then re-allocate a new
	// one.
	if state.buf.Cap() > MaxCapUntilReset {
		state.buf = bytes.Buffer{}
		state.buf.Grow(CopyBufferSize)
	}

	return cpy, nil
}
