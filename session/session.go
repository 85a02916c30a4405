// Package session is an abstraction around the REST API and the gateway: one
// credential, one gateway connection, one event mux and one state mirror. It
// routes every gateway event through the state store before user handlers
// see it.
package session

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/wavebird/concord/api"
	"github.com/wavebird/concord/gateway"
	"github.com/wavebird/concord/handler"
	"github.com/wavebird/concord/state"
)

// ErrClosed is returned by operations attempted on a disconnected session.
var ErrClosed = api.ErrClosed

// Session is a single logical connection to Discord.
type Session struct {
	*api.Client
	*handler.Handler

	Gateway *gateway.Gateway
	State   *state.Store

	Log zerolog.Logger

	hstop chan struct{}
}

// Option mutates a session before it connects.
type Option func(*Session) error

// WithShard assigns the gateway a shard tuple before identifying.
func WithShard(id, num int) Option {
	return func(s *Session) error {
		s.Gateway.Identifier.SetShard(id, num)
		return nil
	}
}

// WithLogger attaches the logger to the session, its API client, gateway,
// state store and event mux.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) error {
		s.Log = log
		s.Client.Log = log
		s.Gateway.Log = log
		s.State.Log = log
		s.Handler.Log = log
		return nil
	}
}

// Connect allocates a session, runs setup with it so event callbacks can be
// registered before anything is sent, then opens the gateway: the Identify
// goes out only after setup returned. Returns the live session.
func Connect(token string, setup func(*Session) error, opts ...Option) (*Session, error) {
	s, err := New(token)
	if err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if setup != nil {
		if err := setup(s); err != nil {
			return nil, errors.Wrap(err, "setup failed")
		}
	}

	if err := s.Open(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to gateway")
	}

	return s, nil
}

// New creates an unopened session. It discovers the gateway URL over REST.
func New(token string) (*Session, error) {
	g, err := gateway.NewGateway(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gateway")
	}

	return NewWithGateway(token, g), nil
}

// NewWithGateway creates an unopened session around an existing gateway,
// skipping URL discovery.
func NewWithGateway(token string, g *gateway.Gateway) *Session {
	h := handler.New()

	// User callbacks run inline on the dispatch loop, after the state
	// update for the same event. That is the ordering guarantee.
	h.Synchronous = true

	return &Session{
		Client:  api.NewClient(token),
		Handler: h,
		Gateway: g,
		State:   state.NewStore(),
		Log:     zerolog.Nop(),
	}
}

// Open starts the dispatch loop and opens the gateway connection.
func (s *Session) Open() error {
	// The loop must be draining Events before the handshake runs, or the
	// READY dispatch would block the gateway.
	s.startHandler()

	if err := s.Gateway.Open(); err != nil {
		s.stopHandler()
		return errors.Wrap(err, "failed to start gateway")
	}

	return nil
}

func (s *Session) startHandler() {
	s.hstop = make(chan struct{})
	go s.handleEvents(s.hstop)
}

func (s *Session) stopHandler() {
	if s.hstop != nil {
		close(s.hstop)
		s.hstop = nil
	}
}

func (s *Session) handleEvents(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case ev := <-s.Gateway.Events:
			// Built-in state updates settle before user callbacks run.
			s.State.Update(ev)
			s.Handler.Call(ev)
		}
	}
}

// Close tears the session down: gateway first, then the dispatch loop, then
// the REST client. Outstanding REST continuations complete with ErrClosed,
// as does every operation attempted afterwards.
func (s *Session) Close() error {
	err := s.Gateway.Close()

	s.stopHandler()
	s.Client.Close()

	return err
}
