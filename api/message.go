package api

import (
	"net/url"

	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/utils/httputil"
	"github.com/wavebird/concord/utils/json/shape"
)

// bulkDeleteShape is the field table for the bulk-delete endpoint.
var bulkDeleteShape = shape.Schema{
	"messages": shape.Array(shape.String),
}

// MessagesQuery is the query filter for the channel messages endpoint. At
// most one of Around, Before and After may be set.
type MessagesQuery struct {
	Around discord.Snowflake `schema:"around,omitempty"`
	Before discord.Snowflake `schema:"before,omitempty"`
	After  discord.Snowflake `schema:"after,omitempty"`
	Limit  uint              `schema:"limit,omitempty"` // 1-100, default 50
}

// Messages returns the channel's messages filtered by the query.
func (c *Client) Messages(
	channelID discord.Snowflake, query MessagesQuery) ([]discord.Message, error) {

	var msgs []discord.Message
	return msgs, c.RequestJSON(
		&msgs, "GET",
		"/channels/"+channelID.String()+"/messages",
		httputil.WithSchema(c.SchemaEncoder, query))
}

// Message fetches a single message.
func (c *Client) Message(channelID, messageID discord.Snowflake) (*discord.Message, error) {
	var msg *discord.Message
	return msg, c.RequestJSON(&msg, "GET",
		"/channels/"+channelID.String()+"/messages/"+messageID.String())
}

// SendMessage posts a plain content message to the channel.
func (c *Client) SendMessage(
	channelID discord.Snowflake, content string) (*discord.Message, error) {

	return c.SendMessageComplex(channelID, SendMessageData{
		Content: content,
	})
}

// EditMessage edits a previously sent message's content.
func (c *Client) EditMessage(
	channelID, messageID discord.Snowflake, content string) (*discord.Message, error) {

	var msg *discord.Message
	return msg, c.RequestJSON(
		&msg, "PATCH",
		"/channels/"+channelID.String()+"/messages/"+messageID.String(),
		httputil.WithShapeBody(
			map[string]interface{}{"content": content},
			shape.Schema{"content": shape.String}))
}

// DeleteMessage deletes a message.
func (c *Client) DeleteMessage(channelID, messageID discord.Snowflake) error {
	return c.FastRequest("DELETE",
		"/channels/"+channelID.String()+"/messages/"+messageID.String())
}

// BulkDeleteMessages deletes 2-100 messages in a single request. Messages
// older than two weeks are rejected by the server.
func (c *Client) BulkDeleteMessages(
	channelID discord.Snowflake, messageIDs []discord.Snowflake) error {

	ids := make([]string, len(messageIDs))
	for i, id := range messageIDs {
		ids[i] = id.String()
	}

	return c.FastRequest(
		"POST",
		"/channels/"+channelID.String()+"/messages/bulk-delete",
		httputil.WithShapeBody(
			map[string]interface{}{"messages": ids},
			bulkDeleteShape))
}

// React adds a reaction to the message with the given emoji, which is
// either a unicode emoji or a "name:id" custom emoji.
func (c *Client) React(channelID, messageID discord.Snowflake, emoji string) error {
	return c.FastRequest("PUT",
		"/channels/"+channelID.String()+
			"/messages/"+messageID.String()+
			"/reactions/"+url.PathEscape(emoji)+"/@me")
}

// Unreact removes the bot's own reaction.
func (c *Client) Unreact(channelID, messageID discord.Snowflake, emoji string) error {
	return c.FastRequest("DELETE",
		"/channels/"+channelID.String()+
			"/messages/"+messageID.String()+
			"/reactions/"+url.PathEscape(emoji)+"/@me")
}
