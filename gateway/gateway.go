// Package gateway handles the Discord gateway (or Websocket) connection: the
// opcode state machine, heartbeating, identifying and resuming, and decoding
// dispatches into typed events.
//
// This package does not abstract event handlers; it exposes a single Events
// channel and leaves routing to the session package.
package gateway

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/wavebird/concord/api"
	"github.com/wavebird/concord/internal/backoff"
	"github.com/wavebird/concord/internal/heart"
	"github.com/wavebird/concord/utils/httputil"
	"github.com/wavebird/concord/utils/json"
	"github.com/wavebird/concord/utils/wsutil"
)

var (
	Version  = api.APIVersion
	Encoding = "json"
)

// Unrecoverable close codes. The engine does not reconnect after these; the
// session enters a terminal failed state instead.
var (
	// ErrAuth is surfaced on close code 4004: the token was rejected.
	ErrAuth = errors.New("gateway: authentication failed")

	// ErrShard is surfaced on close codes 4010 and 4011: the shard tuple was
	// rejected, or the bot is large enough that sharding is required.
	ErrShard = errors.New("gateway: invalid shard settings")

	// ErrFatal is surfaced on the remaining 4012-4014 close codes.
	ErrFatal = errors.New("gateway: unrecoverable close code")
)

// FatalCloseError maps a close code onto its terminal error, or nil if the
// code permits reconnecting.
func FatalCloseError(code int) error {
	switch code {
	case 4004:
		return ErrAuth
	case 4010, 4011:
		return ErrShard
	case 4012, 4013, 4014:
		return ErrFatal
	}
	return nil
}

// URL asks Discord for a Websocket URL to the gateway.
func URL() (string, error) {
	var g api.GatewayData

	return g.URL, httputil.NewClient().RequestJSON(
		&g, "GET",
		api.EndpointGateway,
	)
}

// Gateway is a single shard's connection to the gateway.
type Gateway struct {
	WS *wsutil.Websocket

	// WSTimeout is the timeout for connecting and writing, as well as for
	// waiting for Hello after the transport opens.
	WSTimeout time.Duration

	// Events is where every decoded dispatch is sent. All values are
	// pointers to structs suffixed with "Event".
	Events chan Event

	// SessionID is remembered from READY for resuming. It is only written
	// from the connection's read loop.
	SessionID string

	Identifier *Identifier
	Sequence   *Sequence

	// Pacemaker is replaced on every successful Hello.
	Pacemaker *heart.Pacemaker

	Driver json.Driver
	Log    zerolog.Logger

	// FatalErrorCallback is called once when the gateway hits an
	// unrecoverable close code (ErrAuth, ErrShard, ErrFatal). The gateway is
	// already closed by then. Defaults to a noop.
	FatalErrorCallback func(err error)

	// AfterClose is called after each close, including ones that precede a
	// reconnect. Defaults to a noop.
	AfterClose func(err error)

	statusLimit *rate.Limiter
	backoff     backoff.Backoff

	closing   *atomic.Bool
	paceDeath chan error
	stop      chan struct{}
	stopOnce  *sync.Once
	waitGroup sync.WaitGroup
}

// NewGateway discovers the gateway URL and creates an unopened Gateway for
// it.
func NewGateway(token string) (*Gateway, error) {
	addr, err := URL()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gateway endpoint")
	}

	param := url.Values{
		"v":        {Version},
		"encoding": {Encoding},
	}

	return NewCustomGateway(addr+"?"+param.Encode(), token), nil
}

// NewCustomGateway creates an unopened Gateway for an explicit URL, skipping
// discovery.
func NewCustomGateway(gatewayURL, token string) *Gateway {
	return &Gateway{
		WS:        wsutil.New(gatewayURL),
		WSTimeout: wsutil.WSTimeout,

		Events:     make(chan Event, wsutil.WSBuffer),
		Identifier: DefaultIdentifier(token),
		Sequence:   NewSequence(),

		Driver: json.Default,
		Log:    zerolog.Nop(),

		FatalErrorCallback: func(error) {},
		AfterClose:         func(error) {},

		statusLimit: rate.NewLimiter(rate.Every(12*time.Second), 5),
		backoff:     backoff.NewBackoff(time.Second, time.Minute),
		closing:     atomic.NewBool(false),
	}
}

// WithLogger returns the gateway with the given logger attached.
func (g *Gateway) WithLogger(log zerolog.Logger) *Gateway {
	g.Log = log
	return g
}

// Open dials the gateway and runs the handshake: Hello, then Identify or
// Resume, then waiting for READY or RESUMED. On success the heartbeat and
// read loops are running when it returns.
func (g *Gateway) Open() error {
	g.closing.Store(false)

	ctx := context.Background()

	if err := g.WS.Dial(ctx); err != nil {
		return errors.Wrap(err, "failed to dial gateway")
	}

	if err := g.handshake(ctx); err != nil {
		// Tear the connection down without marking the gateway as
		// deliberately closed, so a surrounding reconnect loop keeps going.
		g.close(0)

		if code, ok := wsutil.ErrCloseCode(err); ok {
			if fatal := FatalCloseError(code); fatal != nil {
				return errors.Wrap(fatal, err.Error())
			}
		}

		return err
	}

	return nil
}

func (g *Gateway) handshake(ctx context.Context) error {
	ch := g.WS.Listen()

	helloCtx, cancel := context.WithTimeout(ctx, g.WSTimeout)
	defer cancel()

	// A connection that never says Hello is forced closed and redialed.
	var hello HelloEvent

	select {
	case ev, ok := <-ch:
		if !ok {
			return errors.New("websocket closed while waiting for Hello")
		}
		if _, err := AssertEvent(g.Driver, ev, HelloOP, &hello); err != nil {
			return errors.Wrap(err, "error at Hello")
		}
	case <-helloCtx.Done():
		return errors.Wrap(helloCtx.Err(), "failed to wait for Hello")
	}

	g.Log.Debug().
		Dur("heartbeat_interval", hello.HeartbeatInterval.Duration()).
		Msg("received Hello")

	// A fresh pacemaker per connection; acks from the old connection must
	// not satisfy beats on the new one.
	pacemaker := heart.NewPacemaker(hello.HeartbeatInterval.Duration(), g.HeartbeatCtx)
	g.Pacemaker = &pacemaker

	resuming := g.SessionID != "" && g.Sequence.Load() > 0

	if resuming {
		if err := g.ResumeCtx(helloCtx); err != nil {
			return errors.Wrap(err, "failed to resume")
		}
	} else {
		g.SessionID = ""
		if err := g.IdentifyCtx(helloCtx); err != nil {
			return errors.Wrap(err, "failed to identify")
		}
	}

	// Handle frames until READY or RESUMED arrives; an Invalid Session in
	// between re-identifies and keeps waiting.
	err := WaitForEvent(helloCtx, g, ch, func(op *OP) bool {
		if op.Code != DispatchOP {
			return false
		}
		return op.EventName == "READY" || op.EventName == "RESUMED"
	})
	if err != nil {
		return errors.Wrap(err, "failed to wait for READY or RESUMED")
	}

	g.stop = make(chan struct{})
	g.stopOnce = new(sync.Once)
	g.paceDeath = make(chan error, 1)

	g.waitGroup.Add(2)
	go g.paceLoop(&pacemaker)
	go g.eventLoop(ch)

	g.backoff.Reset()

	g.Log.Info().Bool("resumed", resuming).Msg("gateway live")

	return nil
}

// paceLoop sends a heartbeat on every tick. Ticks are never skipped or
// coalesced; a beat that finds the previous one unacked kills the loop and
// triggers a resume.
func (g *Gateway) paceLoop(pacemaker *heart.Pacemaker) {
	defer g.waitGroup.Done()
	defer pacemaker.Stop()

	for {
		select {
		case <-g.stop:
			return

		case <-pacemaker.Ticks:
			if err := pacemaker.Pace(); err != nil {
				select {
				case g.paceDeath <- err:
				default:
				}
				return
			}
		}
	}
}

func (g *Gateway) eventLoop(ch <-chan wsutil.Event) {
	defer g.waitGroup.Done()

	for {
		select {
		case <-g.stop:
			return

		case err := <-g.paceDeath:
			g.Log.Error().Err(err).Msg("heartbeat not acknowledged, resuming")
			go g.Reconnect()
			return

		case ev, ok := <-ch:
			if !ok {
				// Transport died without a close frame.
				if !g.closing.Load() {
					go g.Reconnect()
				}
				return
			}

			if ev.Error != nil {
				g.onTransportError(ev.Error)
				return
			}

			if err := HandleEvent(g, ev); err != nil {
				g.Log.Error().Err(err).Msg("failed to handle event")
			}
		}
	}
}

func (g *Gateway) onTransportError(err error) {
	if code, ok := wsutil.ErrCloseCode(err); ok {
		if fatal := FatalCloseError(code); fatal != nil {
			g.Log.Error().Err(err).Int("code", code).Msg("unrecoverable close code")

			g.closing.Store(true)

			// close waits for the loop that called us; tear down from a
			// separate goroutine so the loop can exit first.
			go func() {
				g.close(0)
				g.FatalErrorCallback(fatal)
			}()
			return
		}
	}

	g.Log.Error().Err(err).Msg("websocket error, reconnecting")
	go g.Reconnect()
}

// Reconnect tears the connection down with close code 4000 and redials with
// exponential backoff until the handshake succeeds, resuming the session if
// one is retained. It returns early if Close was called or the server
// rejects the connection permanently.
func (g *Gateway) Reconnect() {
	g.ReconnectWithCode(4000)
}

// ReconnectWithCode is Reconnect with an explicit close code for the old
// connection.
func (g *Gateway) ReconnectWithCode(code int) {
	g.close(code)

	for attempt := 1; ; attempt++ {
		if g.closing.Load() {
			return
		}

		g.Log.Debug().Int("attempt", attempt).Msg("redialing gateway")

		err := g.Open()
		if err == nil {
			return
		}

		if errors.Is(err, ErrAuth) || errors.Is(err, ErrShard) || errors.Is(err, ErrFatal) {
			g.closing.Store(true)
			g.FatalErrorCallback(err)
			return
		}

		wait := g.backoff.Next()

		g.Log.Error().
			Err(err).
			Dur("backoff", wait).
			Msg("failed to reconnect")

		time.Sleep(wait)
	}
}

// Close shuts the connection down with close code 1000 and waits for the
// heartbeat and read loops to exit. The gateway will not reconnect
// afterwards.
func (g *Gateway) Close() error {
	g.closing.Store(true)
	return g.close(0)
}

func (g *Gateway) close(code int) error {
	if g.stopOnce != nil {
		g.stopOnce.Do(func() { close(g.stop) })
	}

	if g.Pacemaker != nil {
		g.Pacemaker.Stop()
	}

	var err error
	if code > 0 {
		err = g.WS.CloseWith(code)
	} else {
		err = g.WS.Close()
	}

	if errors.Is(err, wsutil.ErrWebsocketClosed) {
		err = nil
	}

	g.waitGroup.Wait()

	g.AfterClose(err)

	return err
}
