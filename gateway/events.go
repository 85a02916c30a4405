package gateway

import (
	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/utils/json"
)

// Event is any event struct sent over the Events channel. They are all
// pointers to structs suffixed with "Event".
type Event interface{}

// EventPayload is embedded in every dispatch event. It retains the raw
// envelope data so state handlers can merge it field-wise over cached
// entities.
type EventPayload struct {
	Raw json.Raw `json:"-"`
}

func (p *EventPayload) setRaw(raw json.Raw) { p.Raw = raw }

type rawSetter interface {
	setRaw(json.Raw)
}

// HelloEvent is the op 10 payload, received once per connection before the
// handshake.
type HelloEvent struct {
	HeartbeatInterval discord.Milliseconds `json:"heartbeat_interval"`
	Trace             []string             `json:"_trace,omitempty"`
}

// ReadyEvent is the op 0 READY dispatch, ending a fresh Identify handshake.
type ReadyEvent struct {
	EventPayload

	Version int `json:"v"`

	User      discord.User `json:"user"`
	SessionID string       `json:"session_id"`

	PrivateChannels []discord.Channel `json:"private_channels"`
	Guilds          []discord.Guild   `json:"guilds"`

	Trace []string `json:"_trace,omitempty"`
}

// ResumedEvent ends a successful Resume handshake.
type ResumedEvent struct {
	EventPayload

	Trace []string `json:"_trace,omitempty"`
}

type ChannelCreateEvent struct {
	EventPayload
	discord.Channel
}

type ChannelUpdateEvent struct {
	EventPayload
	discord.Channel
}

type ChannelDeleteEvent struct {
	EventPayload
	discord.Channel
}

type GuildCreateEvent struct {
	EventPayload
	discord.Guild

	Presences []discord.Presence `json:"presences,omitempty"`
}

type GuildUpdateEvent struct {
	EventPayload
	discord.Guild
}

type GuildDeleteEvent struct {
	EventPayload

	ID discord.Snowflake `json:"id"`

	// Unavailable is true on outages; absent means the bot was removed.
	Unavailable bool `json:"unavailable,omitempty"`
}

type GuildBanAddEvent struct {
	EventPayload

	GuildID discord.Snowflake `json:"guild_id"`
	User    discord.User      `json:"user"`
}

type GuildBanRemoveEvent struct {
	EventPayload

	GuildID discord.Snowflake `json:"guild_id"`
	User    discord.User      `json:"user"`
}

type GuildEmojisUpdateEvent struct {
	EventPayload

	GuildID discord.Snowflake `json:"guild_id"`
	Emojis  []discord.Emoji   `json:"emojis"`
}

type GuildIntegrationsUpdateEvent struct {
	EventPayload

	GuildID discord.Snowflake `json:"guild_id"`
}

type GuildMemberAddEvent struct {
	EventPayload
	discord.Member

	GuildID discord.Snowflake `json:"guild_id"`
}

type GuildMemberRemoveEvent struct {
	EventPayload

	GuildID discord.Snowflake `json:"guild_id"`
	User    discord.User      `json:"user"`
}

// GuildMemberUpdateEvent carries a partial member; only the fields present
// in the raw payload are merged into the cached member.
type GuildMemberUpdateEvent struct {
	EventPayload

	GuildID discord.Snowflake   `json:"guild_id"`
	RoleIDs []discord.Snowflake `json:"roles"`
	User    discord.User        `json:"user"`
	Nick    string              `json:"nick"`
}

type GuildMembersChunkEvent struct {
	EventPayload

	GuildID discord.Snowflake `json:"guild_id"`
	Members []discord.Member  `json:"members"`
}

type GuildRoleCreateEvent struct {
	EventPayload

	GuildID discord.Snowflake `json:"guild_id"`
	Role    discord.Role      `json:"role"`
}

type GuildRoleUpdateEvent struct {
	EventPayload

	GuildID discord.Snowflake `json:"guild_id"`
	Role    discord.Role      `json:"role"`
}

type GuildRoleDeleteEvent struct {
	EventPayload

	GuildID discord.Snowflake `json:"guild_id"`
	RoleID  discord.Snowflake `json:"role_id"`
}

type MessageCreateEvent struct {
	EventPayload
	discord.Message
}

type MessageUpdateEvent struct {
	EventPayload
	discord.Message
}

type MessageDeleteEvent struct {
	EventPayload

	ID        discord.Snowflake `json:"id"`
	ChannelID discord.Snowflake `json:"channel_id"`
	GuildID   discord.Snowflake `json:"guild_id,omitempty"`
}

type MessageDeleteBulkEvent struct {
	EventPayload

	IDs       []discord.Snowflake `json:"ids"`
	ChannelID discord.Snowflake   `json:"channel_id"`
	GuildID   discord.Snowflake   `json:"guild_id,omitempty"`
}

type PresenceUpdateEvent struct {
	EventPayload
	discord.Presence
}

type TypingStartEvent struct {
	EventPayload

	ChannelID discord.Snowflake `json:"channel_id"`
	GuildID   discord.Snowflake `json:"guild_id,omitempty"`
	UserID    discord.Snowflake `json:"user_id"`
	Timestamp int64             `json:"timestamp"`
}

type UserUpdateEvent struct {
	EventPayload
	discord.User
}

// UnknownEvent is a dispatch whose name is not in EventCreator. It is
// forwarded unchanged so callers can still inspect the raw payload.
type UnknownEvent struct {
	EventPayload

	EventName string `json:"-"`
}
