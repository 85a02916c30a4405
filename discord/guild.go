package discord

type Guild struct {
	ID     Snowflake `json:"id"`
	Name   string    `json:"name"`
	Icon   string    `json:"icon,omitempty"`
	Region string    `json:"region,omitempty"`

	OwnerID Snowflake `json:"owner_id,omitempty"`

	AFKChannelID Snowflake `json:"afk_channel_id,omitempty"`
	AFKTimeout   int       `json:"afk_timeout,omitempty"`

	VerificationLevel int  `json:"verification_level,omitempty"`
	Large             bool `json:"large,omitempty"`
	Unavailable       bool `json:"unavailable,omitempty"`
	MemberCount       int  `json:"member_count,omitempty"`

	JoinedAt string `json:"joined_at,omitempty"`

	// The three lists keep the server's ordering; entries are unique by ID
	// within a guild.
	Roles    []Role    `json:"roles,omitempty"`
	Emojis   []Emoji   `json:"emojis,omitempty"`
	Members  []Member  `json:"members,omitempty"`
	Channels []Channel `json:"channels,omitempty"`
}

// Channel returns the guild channel with the given ID, or nil.
func (g *Guild) Channel(id Snowflake) *Channel {
	for i := range g.Channels {
		if g.Channels[i].ID == id {
			return &g.Channels[i]
		}
	}
	return nil
}

// Member returns the member with the given user ID, or nil. Members are
// uniquely keyed by user ID within a guild.
func (g *Guild) Member(userID Snowflake) *Member {
	for i := range g.Members {
		if g.Members[i].User.ID == userID {
			return &g.Members[i]
		}
	}
	return nil
}

// Role returns the role with the given ID, or nil.
func (g *Guild) Role(id Snowflake) *Role {
	for i := range g.Roles {
		if g.Roles[i].ID == id {
			return &g.Roles[i]
		}
	}
	return nil
}

type Role struct {
	ID          Snowflake `json:"id"`
	Name        string    `json:"name"`
	Color       int       `json:"color"`
	Hoist       bool      `json:"hoist"`
	Position    int       `json:"position"`
	Permissions uint64    `json:"permissions"`
	Managed     bool      `json:"managed"`
	Mentionable bool      `json:"mentionable"`
}

type Member struct {
	User     User        `json:"user"`
	Nick     string      `json:"nick,omitempty"`
	RoleIDs  []Snowflake `json:"roles,omitempty"`
	JoinedAt string      `json:"joined_at,omitempty"`
	Deaf     bool        `json:"deaf"`
	Mute     bool        `json:"mute"`
}

type Emoji struct {
	ID      Snowflake   `json:"id"` // null for unicode emojis
	Name    string      `json:"name"`
	RoleIDs []Snowflake `json:"roles,omitempty"`
	Managed bool        `json:"managed,omitempty"`
}
