package gateway

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/wavebird/concord/utils/json"
	"github.com/wavebird/concord/utils/wsutil"
)

type OPCode uint8

const (
	DispatchOP            OPCode = 0 // recv
	HeartbeatOP           OPCode = 1 // send/recv
	IdentifyOP            OPCode = 2 // send
	StatusUpdateOP        OPCode = 3 // send
	VoiceStateUpdateOP    OPCode = 4 // send
	VoiceServerPingOP     OPCode = 5 // send
	ResumeOP              OPCode = 6 // send
	ReconnectOP           OPCode = 7 // recv
	RequestGuildMembersOP OPCode = 8 // send
	InvalidSessionOP      OPCode = 9 // recv
	HelloOP               OPCode = 10
	HeartbeatAckOP        OPCode = 11
)

// OP is the gateway envelope. Sequence and EventName are only filled for
// Dispatch (op 0) frames.
type OP struct {
	Code OPCode   `json:"op"`
	Data json.Raw `json:"d,omitempty"`

	Sequence  int64  `json:"s,omitempty"`
	EventName string `json:"t,omitempty"`
}

// DecodeOP decodes a frame into the envelope.
func DecodeOP(driver json.Driver, ev wsutil.Event) (*OP, error) {
	if ev.Error != nil {
		return nil, ev.Error
	}

	if len(ev.Data) == 0 {
		return nil, errors.New("empty payload")
	}

	var op *OP
	if err := driver.Unmarshal(ev.Data, &op); err != nil {
		return nil, errors.Wrap(err, "failed to decode payload: "+string(ev.Data))
	}

	return op, nil
}

// AssertEvent decodes a frame and checks that it carries the given opcode
// before unmarshaling its data into v.
func AssertEvent(driver json.Driver, ev wsutil.Event, code OPCode, v interface{}) (*OP, error) {
	op, err := DecodeOP(driver, ev)
	if err != nil {
		return nil, err
	}

	if op.Code != code {
		return op, errors.Errorf(
			"unexpected OP code: %d, expected %d (%s)",
			op.Code, code, op.Data)
	}

	if err := driver.Unmarshal(op.Data, v); err != nil {
		return op, errors.Wrap(err, "failed to decode data")
	}

	return op, nil
}

// HandleEvent decodes and handles a single frame.
func HandleEvent(g *Gateway, ev wsutil.Event) error {
	op, err := DecodeOP(g.Driver, ev)
	if err != nil {
		return err
	}

	return HandleOP(g, op)
}

// WaitForEvent handles events from ch until fn returns true for one of them.
// All events are handled regardless of what fn is looking for.
func WaitForEvent(ctx context.Context, g *Gateway, ch <-chan wsutil.Event, fn func(*OP) bool) error {
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return errors.New("event channel closed before the event arrived")
			}

			op, err := DecodeOP(g.Driver, ev)
			if err != nil {
				return err
			}

			// Handle the OP first, in case it's an Invalid Session that
			// needs a re-identify before anything else comes through.
			if err := HandleOP(g, op); err != nil {
				return err
			}

			if fn(op) {
				return nil
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// HandleOP applies a decoded envelope onto the engine state.
func HandleOP(g *Gateway, op *OP) error {
	switch op.Code {
	case HeartbeatAckOP:
		// Clear the outstanding-beat flag.
		g.Pacemaker.Echo()

	case HeartbeatOP:
		// Server requested an immediate beat.
		ctx, cancel := context.WithTimeout(context.Background(), g.WSTimeout)
		defer cancel()

		if err := g.HeartbeatCtx(ctx); err != nil {
			return errors.Wrap(err, "failed to beat on request")
		}

	case ReconnectOP:
		// Server wants us off this connection; resume on a fresh one. The
		// non-1000 close code keeps the session alive server-side.
		g.Log.Info().Msg("server requested a reconnect")
		go g.ReconnectWithCode(4000)

	case InvalidSessionOP:
		// The session is gone. Wait a randomized 1-5s, then identify from
		// scratch.
		g.Log.Warn().Msg("invalid session, re-identifying")

		g.SessionID = ""
		g.Sequence.Store(0)

		wait := time.Duration(rand.Intn(4000)+1000) * time.Millisecond
		time.Sleep(wait)

		ctx, cancel := context.WithTimeout(context.Background(), g.WSTimeout)
		defer cancel()

		if err := g.IdentifyCtx(ctx); err != nil {
			return errors.Wrap(err, "failed to identify after invalid session")
		}

	case HelloOP:
		// Handled during the handshake; seeing one mid-stream is a protocol
		// error worth logging, not dying over.
		g.Log.Warn().Msg("unexpected Hello mid-connection")

	case DispatchOP:
		if op.Sequence > 0 && !g.Sequence.Advance(op.Sequence) {
			g.Log.Error().
				Int64("sequence", op.Sequence).
				Int64("stored", g.Sequence.Load()).
				Msg("sequence regressed, forcing resume")

			go g.ReconnectWithCode(4000)
			return nil
		}

		return g.dispatch(op)

	default:
		g.Log.Warn().
			Uint8("op", uint8(op.Code)).
			Str("data", string(op.Data)).
			Msg("unknown OP code")
	}

	return nil
}

func (g *Gateway) dispatch(op *OP) error {
	fn, ok := EventCreator[op.EventName]
	if !ok {
		g.Log.Debug().Str("event", op.EventName).Msg("unknown dispatch event")

		g.Events <- &UnknownEvent{
			EventPayload: EventPayload{Raw: op.Data},
			EventName:    op.EventName,
		}
		return nil
	}

	ev := fn()
	if err := g.Driver.Unmarshal(op.Data, ev); err != nil {
		return errors.Wrap(err, "failed to decode event "+op.EventName)
	}

	// Keep the raw payload around for field-wise merging downstream.
	if setter, ok := ev.(rawSetter); ok {
		setter.setRaw(op.Data)
	}

	// Absorb the session handle from READY for later resumes.
	if ready, ok := ev.(*ReadyEvent); ok {
		g.SessionID = ready.SessionID
	}

	g.Events <- ev

	return nil
}
