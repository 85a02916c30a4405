package discord

type ChannelType int

const (
	GuildText ChannelType = iota
	DirectMessage
	GuildVoice
	GroupDM
	GuildCategory
)

type Channel struct {
	ID   Snowflake   `json:"id"`
	Type ChannelType `json:"type"`

	// GuildID is absent on DM channels; DM channels live in the session's
	// dmChannels map instead of a guild.
	GuildID Snowflake `json:"guild_id,omitempty"`

	Name     string `json:"name,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Position int    `json:"position,omitempty"`
	NSFW     bool   `json:"nsfw,omitempty"`

	LastMessageID Snowflake `json:"last_message_id,omitempty"`

	Bitrate   int `json:"bitrate,omitempty"`
	UserLimit int `json:"user_limit,omitempty"`

	ParentID Snowflake `json:"parent_id,omitempty"`

	// Recipients is only filled for DM channels (size >= 1).
	Recipients []User `json:"recipients,omitempty"`

	Overwrites []Overwrite `json:"permission_overwrites,omitempty"`
}

// IsDM returns whether the channel is a direct message channel (one that
// belongs to no guild).
func (ch Channel) IsDM() bool {
	return ch.Type == DirectMessage || ch.Type == GroupDM
}

// Overwrite is a per-channel permission allow/deny record attached to a user
// or role.
type Overwrite struct {
	ID    Snowflake `json:"id"`
	Type  string    `json:"type"` // "role" or "member"
	Allow uint64    `json:"allow"`
	Deny  uint64    `json:"deny"`
}
