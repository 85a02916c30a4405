package discord

type Message struct {
	ID        Snowflake `json:"id"`
	ChannelID Snowflake `json:"channel_id"`
	GuildID   Snowflake `json:"guild_id,omitempty"`

	Author  User   `json:"author"`
	Content string `json:"content"`

	Timestamp       string `json:"timestamp,omitempty"`
	EditedTimestamp string `json:"edited_timestamp,omitempty"`

	TTS             bool `json:"tts"`
	MentionEveryone bool `json:"mention_everyone"`
	Pinned          bool `json:"pinned"`

	Mentions    []User      `json:"mentions,omitempty"`
	MentionRole []Snowflake `json:"mention_roles,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`

	Nonce string `json:"nonce,omitempty"`
}

type Attachment struct {
	ID       Snowflake `json:"id"`
	Filename string    `json:"filename"`
	Size     uint64    `json:"size"`
	URL      string    `json:"url"`
	Proxy    string    `json:"proxy_url"`
	Height   int       `json:"height,omitempty"`
	Width    int       `json:"width,omitempty"`
}
