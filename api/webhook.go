package api

import (
	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/utils/httputil"
)

// Webhook is a channel webhook.
type Webhook struct {
	ID        discord.Snowflake `json:"id"`
	GuildID   discord.Snowflake `json:"guild_id,omitempty"`
	ChannelID discord.Snowflake `json:"channel_id"`
	User      *discord.User     `json:"user,omitempty"`
	Name      string            `json:"name"`
	Avatar    string            `json:"avatar"`
	Token     string            `json:"token,omitempty"`
}

// ExecuteWebhookData is the payload for ExecuteWebhook.
type ExecuteWebhookData struct {
	Content   string `json:"content,omitempty"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	TTS       bool   `json:"tts,omitempty"`
}

// CreateWebhook creates a webhook on the channel.
func (c *Client) CreateWebhook(
	channelID discord.Snowflake, name string) (*Webhook, error) {

	var body = struct {
		Name string `json:"name"`
	}{name}

	var wh *Webhook
	return wh, c.RequestJSON(&wh, "POST",
		"/channels/"+channelID.String()+"/webhooks",
		httputil.WithJSONBody(body))
}

// Webhooks returns the channel's webhooks.
func (c *Client) Webhooks(channelID discord.Snowflake) ([]Webhook, error) {
	var whs []Webhook
	return whs, c.RequestJSON(&whs, "GET",
		"/channels/"+channelID.String()+"/webhooks")
}

// DeleteWebhook deletes a webhook.
func (c *Client) DeleteWebhook(webhookID discord.Snowflake) error {
	return c.FastRequest("DELETE", "/webhooks/"+webhookID.String())
}

// ExecuteWebhook executes the webhook with its own token; the client's
// credential is not required. If wait is true, the created message is
// returned, otherwise both return values are nil.
func (c *Client) ExecuteWebhook(
	webhookID discord.Snowflake, token string, wait bool,
	data ExecuteWebhookData) (*discord.Message, error) {

	var resource = "/webhooks/" + webhookID.String() + "/" + token
	if wait {
		resource += "?wait=true"
	}

	if !wait {
		return nil, c.FastRequest("POST", resource, httputil.WithJSONBody(data))
	}

	var msg *discord.Message
	return msg, c.RequestJSON(&msg, "POST", resource, httputil.WithJSONBody(data))
}
