package state

import (
	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/gateway"
	"github.com/wavebird/concord/utils/json"
)

// Update applies a single gateway event onto the store. It is total over the
// recognized events: everything either mutates state or is an intentional
// no-op. Malformed payloads are logged and skipped; they never propagate, so
// one bad event cannot poison the dispatch loop.
//
// The session calls Update before user handlers run, so callbacks always
// observe the already-updated store.
func (s *Store) Update(ev gateway.Event) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch ev := ev.(type) {
	case *gateway.ReadyEvent:
		s.onReady(ev)

	case *gateway.ResumedEvent:
		// Intentional no-op besides the trace.
		s.Log.Debug().Strs("trace", ev.Trace).Msg("session resumed")

	case *gateway.ChannelCreateEvent:
		s.onChannelCreate(ev)
	case *gateway.ChannelUpdateEvent:
		s.onChannelUpdate(ev)
	case *gateway.ChannelDeleteEvent:
		s.onChannelDelete(ev)

	case *gateway.GuildCreateEvent:
		s.onGuildCreate(ev)
	case *gateway.GuildUpdateEvent:
		s.mergeGuild(ev.ID, ev.Raw)
	case *gateway.GuildDeleteEvent:
		delete(s.guilds, ev.ID)

	case *gateway.GuildBanAddEvent:
		// Member removal arrives separately as GUILD_MEMBER_REMOVE.
		s.Log.Debug().
			Str("guild", ev.GuildID.String()).
			Str("user", ev.User.ID.String()).
			Msg("guild ban added")
	case *gateway.GuildBanRemoveEvent:
		s.Log.Debug().
			Str("guild", ev.GuildID.String()).
			Str("user", ev.User.ID.String()).
			Msg("guild ban removed")

	case *gateway.GuildEmojisUpdateEvent:
		if g, ok := s.guilds[ev.GuildID]; ok {
			g.Emojis = ev.Emojis
		}

	case *gateway.GuildIntegrationsUpdateEvent:
		s.Log.Debug().Str("guild", ev.GuildID.String()).Msg("integrations updated")

	case *gateway.GuildMemberAddEvent:
		if g, ok := s.guilds[ev.GuildID]; ok {
			g.Members = append(g.Members, ev.Member)
		}
	case *gateway.GuildMemberRemoveEvent:
		s.onMemberRemove(ev)
	case *gateway.GuildMemberUpdateEvent:
		s.onMemberUpdate(ev)

	case *gateway.GuildMembersChunkEvent:
		// The chunk is for the caller of RequestGuildMembers.
		s.Log.Debug().
			Str("guild", ev.GuildID.String()).
			Int("members", len(ev.Members)).
			Msg("received member chunk")

	case *gateway.GuildRoleCreateEvent:
		if g, ok := s.guilds[ev.GuildID]; ok {
			g.Roles = append(g.Roles, ev.Role)
		}
	case *gateway.GuildRoleUpdateEvent:
		s.onRoleUpdate(ev)
	case *gateway.GuildRoleDeleteEvent:
		s.onRoleDelete(ev)

	case *gateway.MessageCreateEvent,
		*gateway.MessageUpdateEvent,
		*gateway.MessageDeleteEvent,
		*gateway.MessageDeleteBulkEvent:
		// Messages are not cached.

	case *gateway.PresenceUpdateEvent:
		s.onPresenceUpdate(ev.Raw, ev.Presence)

	case *gateway.UserUpdateEvent:
		s.onUserUpdate(ev)

	case *gateway.TypingStartEvent:
		// Ephemeral; nothing to cache.

	case *gateway.UnknownEvent:
		s.Log.Debug().Str("event", ev.EventName).Msg("unknown event")

	default:
		s.Log.Debug().Interface("event", ev).Msg("unhandled event type")
	}
}

func (s *Store) onReady(ev *gateway.ReadyEvent) {
	s.self = ev.User
	s.sessionID = ev.SessionID

	s.guilds = make(map[discord.Snowflake]*discord.Guild, len(ev.Guilds))
	for i := range ev.Guilds {
		g := ev.Guilds[i]
		s.guilds[g.ID] = &g
	}

	s.dmChannels = make(map[discord.Snowflake]*discord.Channel, len(ev.PrivateChannels))
	for i := range ev.PrivateChannels {
		ch := ev.PrivateChannels[i]
		s.dmChannels[ch.ID] = &ch
	}
}

func (s *Store) onChannelCreate(ev *gateway.ChannelCreateEvent) {
	if ev.IsDM() {
		ch := ev.Channel
		s.dmChannels[ch.ID] = &ch
		return
	}

	g, ok := s.guilds[ev.GuildID]
	if !ok {
		s.Log.Warn().
			Str("channel", ev.ID.String()).
			Str("guild", ev.GuildID.String()).
			Msg("channel created in unknown guild")
		return
	}

	g.Channels = append(g.Channels, ev.Channel)
}

func (s *Store) onChannelUpdate(ev *gateway.ChannelUpdateEvent) {
	if ch, ok := s.dmChannels[ev.ID]; ok {
		s.merge(ev.Raw, ch, "channel")
		return
	}

	if g, ok := s.guilds[ev.GuildID]; ok {
		if ch := g.Channel(ev.ID); ch != nil {
			s.merge(ev.Raw, ch, "channel")
			return
		}
	}

	s.Log.Warn().Str("channel", ev.ID.String()).Msg("update for unknown channel")
}

func (s *Store) onChannelDelete(ev *gateway.ChannelDeleteEvent) {
	if ev.IsDM() {
		delete(s.dmChannels, ev.ID)
		return
	}

	g, ok := s.guilds[ev.GuildID]
	if !ok {
		return
	}

	for i := range g.Channels {
		if g.Channels[i].ID == ev.ID {
			g.Channels = append(g.Channels[:i], g.Channels[i+1:]...)
			return
		}
	}
}

func (s *Store) onGuildCreate(ev *gateway.GuildCreateEvent) {
	g := ev.Guild
	s.guilds[g.ID] = &g

	// The member list seeds the session-wide user directory.
	for i := range g.Members {
		u := g.Members[i].User
		s.users[u.ID] = &u
	}

	// Presences shipped with the guild go through the same merge path as
	// live PRESENCE_UPDATE dispatches.
	for _, presence := range ev.Presences {
		s.onPresenceUpdate(nil, presence)
	}
}

func (s *Store) mergeGuild(id discord.Snowflake, raw json.Raw) {
	g, ok := s.guilds[id]
	if !ok {
		s.Log.Warn().Str("guild", id.String()).Msg("update for unknown guild")
		return
	}

	s.merge(raw, g, "guild")
}

func (s *Store) onMemberRemove(ev *gateway.GuildMemberRemoveEvent) {
	g, ok := s.guilds[ev.GuildID]
	if !ok {
		return
	}

	for i := range g.Members {
		if g.Members[i].User.ID == ev.User.ID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return
		}
	}
}

func (s *Store) onMemberUpdate(ev *gateway.GuildMemberUpdateEvent) {
	g, ok := s.guilds[ev.GuildID]
	if !ok {
		return
	}

	m := g.Member(ev.User.ID)
	if m == nil {
		return
	}

	// The payload shares the member's field names, so merging it over the
	// cached member only touches the fields the server actually sent.
	s.merge(ev.Raw, m, "member")
}

func (s *Store) onRoleUpdate(ev *gateway.GuildRoleUpdateEvent) {
	g, ok := s.guilds[ev.GuildID]
	if !ok {
		return
	}

	r := g.Role(ev.Role.ID)
	if r == nil {
		g.Roles = append(g.Roles, ev.Role)
		return
	}

	var body struct {
		Role json.Raw `json:"role"`
	}
	if err := json.Unmarshal(ev.Raw, &body); err != nil {
		s.Log.Warn().Err(err).Msg("malformed role update")
		return
	}

	s.merge(body.Role, r, "role")
}

func (s *Store) onRoleDelete(ev *gateway.GuildRoleDeleteEvent) {
	g, ok := s.guilds[ev.GuildID]
	if !ok {
		return
	}

	for i := range g.Roles {
		if g.Roles[i].ID == ev.RoleID {
			g.Roles = append(g.Roles[:i], g.Roles[i+1:]...)
			return
		}
	}
}

// onPresenceUpdate merges a presence into the user directory and, when a
// guild is named, its roles and nick into the matching member. raw may be
// nil for presences replayed out of GUILD_CREATE; the typed fields carry
// everything needed then.
func (s *Store) onPresenceUpdate(raw json.Raw, presence discord.Presence) {
	if !presence.User.ID.IsValid() {
		return
	}

	u, ok := s.users[presence.User.ID]
	if !ok {
		cpy := presence.User
		u = &cpy
		s.users[u.ID] = u
	}

	if raw != nil {
		var body struct {
			User json.Raw `json:"user"`
		}
		if err := json.Unmarshal(raw, &body); err == nil && body.User != nil {
			s.merge(body.User, u, "user")
		}
	}

	if presence.Status != "" {
		u.Status = presence.Status
	}
	if presence.Game != nil {
		u.Game = presence.Game
	}

	if !presence.GuildID.IsValid() {
		return
	}

	g, ok := s.guilds[presence.GuildID]
	if !ok {
		return
	}

	m := g.Member(presence.User.ID)
	if m == nil {
		return
	}

	if presence.RoleIDs != nil {
		m.RoleIDs = presence.RoleIDs
	}
	if presence.Nick != "" {
		m.Nick = presence.Nick
	}
}

func (s *Store) onUserUpdate(ev *gateway.UserUpdateEvent) {
	if ev.ID == s.self.ID {
		s.merge(ev.Raw, &s.self, "self")
	}

	if u, ok := s.users[ev.ID]; ok {
		s.merge(ev.Raw, u, "user")
		return
	}

	cpy := ev.User
	s.users[cpy.ID] = &cpy
}

// merge unmarshals raw over an already-populated struct: absent fields keep
// their cached values, present ones are overwritten.
func (s *Store) merge(raw json.Raw, v interface{}, what string) {
	if err := json.Unmarshal(raw, v); err != nil {
		s.Log.Warn().Err(err).Str("entity", what).Msg("failed to merge payload")
	}
}
