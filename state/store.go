// Package state keeps a session-scoped mirror of the entities Discord
// streams over the gateway: the current user, guilds with their channels,
// members and roles, DM channels, and a session-wide user directory.
//
// Mutations happen only through Store.Update, which the session calls
// serially from its dispatch loop; reads may come from any goroutine.
package state

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/wavebird/concord/discord"
)

type Store struct {
	mutex sync.RWMutex

	Log zerolog.Logger

	self      discord.User
	sessionID string

	guilds     map[discord.Snowflake]*discord.Guild
	dmChannels map[discord.Snowflake]*discord.Channel
	users      map[discord.Snowflake]*discord.User
}

func NewStore() *Store {
	return &Store{
		Log: zerolog.Nop(),

		guilds:     map[discord.Snowflake]*discord.Guild{},
		dmChannels: map[discord.Snowflake]*discord.Channel{},
		users:      map[discord.Snowflake]*discord.User{},
	}
}

// Self returns the current user, as absorbed from READY and kept fresh by
// USER_UPDATE.
func (s *Store) Self() discord.User {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.self
}

// SessionID returns the gateway session ID from the last READY.
func (s *Store) SessionID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.sessionID
}

// Guild returns a copy of the guild, or nil if it isn't cached.
func (s *Store) Guild(id discord.Snowflake) *discord.Guild {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	g, ok := s.guilds[id]
	if !ok {
		return nil
	}

	cpy := *g
	return &cpy
}

// Guilds returns copies of every cached guild.
func (s *Store) Guilds() []discord.Guild {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	guilds := make([]discord.Guild, 0, len(s.guilds))
	for _, g := range s.guilds {
		guilds = append(guilds, *g)
	}

	return guilds
}

// DMChannel returns a copy of the DM channel, or nil if it isn't cached.
func (s *Store) DMChannel(id discord.Snowflake) *discord.Channel {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ch, ok := s.dmChannels[id]
	if !ok {
		return nil
	}

	cpy := *ch
	return &cpy
}

// DMChannels returns copies of every cached DM channel.
func (s *Store) DMChannels() []discord.Channel {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	channels := make([]discord.Channel, 0, len(s.dmChannels))
	for _, ch := range s.dmChannels {
		channels = append(channels, *ch)
	}

	return channels
}

// User returns a copy of the user from the session-wide directory, or nil.
func (s *Store) User(id discord.Snowflake) *discord.User {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil
	}

	cpy := *u
	return &cpy
}

// Member returns a copy of the guild member, or nil.
func (s *Store) Member(guildID, userID discord.Snowflake) *discord.Member {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return nil
	}

	m := g.Member(userID)
	if m == nil {
		return nil
	}

	cpy := *m
	return &cpy
}

// Channel searches every cached guild and the DM map for the channel.
func (s *Store) Channel(id discord.Snowflake) *discord.Channel {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if ch, ok := s.dmChannels[id]; ok {
		cpy := *ch
		return &cpy
	}

	for _, g := range s.guilds {
		if ch := g.Channel(id); ch != nil {
			cpy := *ch
			return &cpy
		}
	}

	return nil
}
