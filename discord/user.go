package discord

type User struct {
	ID            Snowflake `json:"id"`
	Username      string    `json:"username"`
	Discriminator string    `json:"discriminator"`
	Avatar        string    `json:"avatar,omitempty"`
	Bot           bool      `json:"bot,omitempty"`

	// Status and Game are presence fields; they are only filled in the
	// session user directory, never by REST payloads.
	Status string    `json:"status,omitempty"`
	Game   *Activity `json:"game,omitempty"`
}

// Activity is the game/activity half of a presence.
type Activity struct {
	Name string `json:"name"`
	Type int    `json:"type,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Presence is the per-guild presence payload.
type Presence struct {
	User    User      `json:"user"`
	GuildID Snowflake `json:"guild_id,omitempty"`
	Status  string    `json:"status,omitempty"`
	Game    *Activity `json:"game,omitempty"`

	RoleIDs []Snowflake `json:"roles,omitempty"`
	Nick    string      `json:"nick,omitempty"`
}
