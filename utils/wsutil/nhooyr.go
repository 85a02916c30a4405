package wsutil

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"nhooyr.io/websocket"
)

// NhooyrConn is an alternate Connection driver on top of nhooyr.io/websocket.
type NhooyrConn struct {
	mutex sync.Mutex

	Conn *websocket.Conn

	opts   *websocket.DialOptions
	cancel context.CancelFunc
	events chan Event
}

var _ Connection = (*NhooyrConn)(nil)

// NewNhooyrConn creates an undialed nhooyr-backed connection.
func NewNhooyrConn() *NhooyrConn {
	return &NhooyrConn{opts: &websocket.DialOptions{}}
}

func (c *NhooyrConn) Dial(ctx context.Context, addr string) error {
	conn, _, err := websocket.Dial(ctx, addr, c.opts)
	if err != nil {
		return errors.Wrap(err, "failed to dial WS")
	}

	// Gateway payloads regularly exceed the library's 32KB default.
	conn.SetReadLimit(512 << 10)

	readCtx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, WSBuffer)

	go nhooyrReadLoop(readCtx, conn, events)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.Conn = conn
	c.cancel = cancel
	c.events = events

	return nil
}

func (c *NhooyrConn) Listen() <-chan Event {
	return c.events
}

func (c *NhooyrConn) Send(ctx context.Context, b []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.Conn.Write(ctx, websocket.MessageText, b)
}

func (c *NhooyrConn) Close() error {
	return c.CloseWith(int(websocket.StatusNormalClosure))
}

// CloseWith closes the connection with the given close code.
func (c *NhooyrConn) CloseWith(code int) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	err := c.Conn.Close(websocket.StatusCode(code), "")
	c.cancel()

	for range c.events {
	}

	c.Conn = nil

	return err
}

func nhooyrReadLoop(ctx context.Context, conn *websocket.Conn, eventCh chan<- Event) {
	defer close(eventCh)

	for {
		t, b, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}

			if status := websocket.CloseStatus(err); status >= 0 {
				if status == websocket.StatusNormalClosure {
					return
				}
				eventCh <- Event{nil, &CloseError{Code: int(status)}}
				return
			}

			eventCh <- Event{nil, errors.Wrap(err, "WS error")}
			return
		}

		if t == websocket.MessageBinary {
			b, err = inflate(b)
			if err != nil {
				eventCh <- Event{nil, err}
				return
			}
		}

		if len(b) == 0 {
			continue
		}

		eventCh <- Event{b, nil}
	}
}

func inflate(b []byte) ([]byte, error) {
	z, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create a zlib reader")
	}
	defer z.Close()

	return io.ReadAll(z)
}
