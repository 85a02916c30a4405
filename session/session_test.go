package session

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/gateway"
)

func newTestSession() *Session {
	g := gateway.NewCustomGateway("wss://localhost", "Bot token")
	return NewWithGateway("Bot token", g)
}

func TestDispatchOrdering(t *testing.T) {
	s := newTestSession()

	type observation struct {
		selfID discord.Snowflake
		guilds int
	}

	observed := make(chan observation, 1)

	// The user callback must already see the state the same event built.
	s.AddHandler(func(ev *gateway.ReadyEvent) {
		observed <- observation{
			selfID: s.State.Self().ID,
			guilds: len(s.State.Guilds()),
		}
	})

	s.startHandler()
	defer s.stopHandler()

	s.Gateway.Events <- &gateway.ReadyEvent{
		User:      discord.User{ID: "u1"},
		SessionID: "abc",
		Guilds:    []discord.Guild{{ID: "g1"}},
	}

	select {
	case obs := <-observed:
		if obs.selfID != "u1" {
			t.Error("callback saw stale self:", obs.selfID)
		}
		if obs.guilds != 1 {
			t.Error("callback saw stale guilds:", obs.guilds)
		}
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
}

func TestDispatchSerial(t *testing.T) {
	s := newTestSession()

	var order []string
	done := make(chan struct{})

	s.AddHandler(func(ev *gateway.GuildCreateEvent) {
		order = append(order, ev.ID.String())
		if len(order) == 3 {
			close(done)
		}
	})

	s.startHandler()
	defer s.stopHandler()

	for _, id := range []discord.Snowflake{"g1", "g2", "g3"} {
		ev := &gateway.GuildCreateEvent{}
		ev.ID = id
		s.Gateway.Events <- ev
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("events never delivered")
	}

	for i, id := range []string{"g1", "g2", "g3"} {
		if order[i] != id {
			t.Fatal("events delivered out of order:", order)
		}
	}
}

func TestClose(t *testing.T) {
	s := newTestSession()

	s.startHandler()

	// The gateway was never opened; Close must still tear the session down
	// and poison the REST client.
	s.Close()

	_, err := s.Me()
	if !errors.Is(err, ErrClosed) {
		t.Fatal("expected ErrClosed, got:", err)
	}
}
