package state

import (
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/gateway"
	"github.com/wavebird/concord/utils/json"
)

func ready(s *Store) {
	s.Update(&gateway.ReadyEvent{
		User:      discord.User{ID: "u1", Username: "hime"},
		SessionID: "abc",
		Guilds: []discord.Guild{
			{ID: "g1", Name: "one"},
		},
		PrivateChannels: []discord.Channel{
			{ID: "dm1", Type: discord.DirectMessage},
		},
	})
}

func TestReady(t *testing.T) {
	s := NewStore()
	ready(s)

	if self := s.Self(); self.ID != "u1" {
		t.Error("unexpected self:", self.ID)
	}
	if s.SessionID() != "abc" {
		t.Error("unexpected session ID:", s.SessionID())
	}
	if s.Guild("g1") == nil {
		t.Error("guild g1 missing")
	}
	if s.DMChannel("dm1") == nil {
		t.Error("DM channel dm1 missing")
	}
}

func TestGuildLifetime(t *testing.T) {
	s := NewStore()
	ready(s)

	s.Update(&gateway.GuildCreateEvent{
		Guild: discord.Guild{ID: "g2", Name: "two"},
	})

	if s.Guild("g2") == nil {
		t.Fatal("created guild missing")
	}

	s.Update(&gateway.GuildDeleteEvent{ID: "g2"})

	if s.Guild("g2") != nil {
		t.Fatal("deleted guild still cached")
	}
}

func TestGuildUpdateMerges(t *testing.T) {
	s := NewStore()
	ready(s)

	s.Update(&gateway.GuildUpdateEvent{
		EventPayload: gateway.EventPayload{
			Raw: json.Raw(`{"id":"g1","name":"renamed"}`),
		},
		Guild: discord.Guild{ID: "g1", Name: "renamed"},
	})

	g := s.Guild("g1")
	if g == nil {
		t.Fatal("guild g1 missing")
	}
	if g.Name != "renamed" {
		t.Error("name not merged:", g.Name)
	}
}

func TestDMChannelLifetime(t *testing.T) {
	s := NewStore()
	ready(s)

	s.Update(&gateway.ChannelCreateEvent{
		Channel: discord.Channel{ID: "dm2", Type: discord.DirectMessage},
	})

	if s.DMChannel("dm2") == nil {
		t.Fatal("created DM channel missing")
	}

	s.Update(&gateway.ChannelDeleteEvent{
		Channel: discord.Channel{ID: "dm2", Type: discord.DirectMessage},
	})

	if s.DMChannel("dm2") != nil {
		t.Fatal("deleted DM channel still cached")
	}
}

func TestGuildChannels(t *testing.T) {
	s := NewStore()
	ready(s)

	s.Update(&gateway.ChannelCreateEvent{
		Channel: discord.Channel{ID: "c1", GuildID: "g1", Name: "general"},
	})

	g := s.Guild("g1")
	if g == nil || g.Channel("c1") == nil {
		t.Fatal("guild channel missing")
	}

	// Field-wise merge keeps the untouched fields.
	s.Update(&gateway.ChannelUpdateEvent{
		EventPayload: gateway.EventPayload{
			Raw: json.Raw(`{"id":"c1","guild_id":"g1","topic":"hello"}`),
		},
		Channel: discord.Channel{ID: "c1", GuildID: "g1", Topic: "hello"},
	})

	ch := s.Guild("g1").Channel("c1")
	if ch.Topic != "hello" {
		t.Error("topic not merged:", ch.Topic)
	}
	if ch.Name != "general" {
		t.Error("name lost in merge:", ch.Name)
	}
}

func TestRoleUpdateKeepsOneEntry(t *testing.T) {
	s := NewStore()
	ready(s)

	s.Update(&gateway.GuildRoleCreateEvent{
		GuildID: "g1",
		Role:    discord.Role{ID: "r1", Name: "mod", Color: 0xff0000},
	})

	s.Update(&gateway.GuildRoleUpdateEvent{
		EventPayload: gateway.EventPayload{
			Raw: json.Raw(`{"guild_id":"g1","role":{"id":"r1","name":"admin"}}`),
		},
		GuildID: "g1",
		Role:    discord.Role{ID: "r1", Name: "admin"},
	})

	g := s.Guild("g1")

	var count int
	for _, r := range g.Roles {
		if r.ID == "r1" {
			count++
		}
	}
	if count != 1 {
		t.Fatal("duplicate role entries:", count)
	}

	if r := g.Role("r1"); r.Name != "admin" {
		t.Error("role not merged:", r.Name)
	}

	s.Update(&gateway.GuildRoleDeleteEvent{GuildID: "g1", RoleID: "r1"})

	if s.Guild("g1").Role("r1") != nil {
		t.Fatal("deleted role still cached")
	}
}

func TestMemberMerge(t *testing.T) {
	s := NewStore()
	ready(s)

	s.Update(&gateway.GuildMemberAddEvent{
		GuildID: "g1",
		Member: discord.Member{
			User:    discord.User{ID: "u7"},
			Nick:    "old",
			RoleIDs: []discord.Snowflake{"r1"},
		},
	})

	s.Update(&gateway.GuildMemberUpdateEvent{
		EventPayload: gateway.EventPayload{
			Raw: json.Raw(`{"guild_id":"g1","user":{"id":"u7"},"nick":"new"}`),
		},
		GuildID: "g1",
		User:    discord.User{ID: "u7"},
		Nick:    "new",
	})

	m := s.Member("g1", "u7")
	if m == nil {
		t.Fatal("member missing")
	}

	if m.Nick != "new" {
		t.Error("nick not merged:", spew.Sdump(m))
	}
	if len(m.RoleIDs) != 1 || m.RoleIDs[0] != "r1" {
		t.Error("roles lost in merge:", spew.Sdump(m))
	}

	s.Update(&gateway.GuildMemberRemoveEvent{
		GuildID: "g1",
		User:    discord.User{ID: "u7"},
	})

	if s.Member("g1", "u7") != nil {
		t.Fatal("removed member still cached")
	}
}

func TestGuildCreateSeedsUsersAndPresences(t *testing.T) {
	s := NewStore()
	ready(s)

	s.Update(&gateway.GuildCreateEvent{
		Guild: discord.Guild{
			ID: "g3",
			Members: []discord.Member{
				{User: discord.User{ID: "u8", Username: "momo"}},
			},
		},
		Presences: []discord.Presence{
			{
				User:    discord.User{ID: "u8"},
				GuildID: "g3",
				Status:  "online",
			},
		},
	})

	u := s.User("u8")
	if u == nil {
		t.Fatal("member user not in directory")
	}
	if u.Username != "momo" {
		t.Error("unexpected username:", u.Username)
	}
	if u.Status != "online" {
		t.Error("presence not replayed; status =", u.Status)
	}
}

func TestPresenceUpdateMergesMember(t *testing.T) {
	s := NewStore()
	ready(s)

	s.Update(&gateway.GuildMemberAddEvent{
		GuildID: "g1",
		Member: discord.Member{
			User:    discord.User{ID: "u9"},
			RoleIDs: []discord.Snowflake{"r1"},
		},
	})

	s.Update(&gateway.PresenceUpdateEvent{
		EventPayload: gateway.EventPayload{
			Raw: json.Raw(`{"user":{"id":"u9"},"guild_id":"g1","status":"idle","roles":["r1","r2"],"nick":"nine"}`),
		},
		Presence: discord.Presence{
			User:    discord.User{ID: "u9"},
			GuildID: "g1",
			Status:  "idle",
			RoleIDs: []discord.Snowflake{"r1", "r2"},
			Nick:    "nine",
		},
	})

	if u := s.User("u9"); u == nil || u.Status != "idle" {
		t.Fatal("presence not merged into user directory")
	}

	m := s.Member("g1", "u9")
	if m.Nick != "nine" {
		t.Error("nick not merged:", m.Nick)
	}
	if len(m.RoleIDs) != 2 {
		t.Error("roles not merged:", m.RoleIDs)
	}
}

func TestUserUpdate(t *testing.T) {
	s := NewStore()
	ready(s)

	s.Update(&gateway.UserUpdateEvent{
		EventPayload: gateway.EventPayload{
			Raw: json.Raw(`{"id":"u1","username":"renamed"}`),
		},
		User: discord.User{ID: "u1", Username: "renamed"},
	})

	if self := s.Self(); self.Username != "renamed" {
		t.Error("self not merged:", self.Username)
	}
}
