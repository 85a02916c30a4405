package api

import (
	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/utils/httputil"
	"github.com/wavebird/concord/utils/json/shape"
)

// modifyChannelShape is the field table for channel mutation endpoints.
var modifyChannelShape = shape.Schema{
	"name":       shape.String,
	"topic":      shape.String,
	"position":   shape.Bare,
	"nsfw":       shape.Bare,
	"bitrate":    shape.Bare,
	"user_limit": shape.Bare,
	"parent_id":  shape.String,
}

// Channel fetches a channel by ID.
func (c *Client) Channel(channelID discord.Snowflake) (*discord.Channel, error) {
	var ch *discord.Channel
	return ch, c.RequestJSON(&ch, "GET", "/channels/"+channelID.String())
}

// ModifyChannel edits the fields named in the input mapping; absent fields
// are left untouched server-side.
func (c *Client) ModifyChannel(
	channelID discord.Snowflake, fields map[string]interface{}) (*discord.Channel, error) {

	var ch *discord.Channel
	return ch, c.RequestJSON(
		&ch, "PATCH",
		"/channels/"+channelID.String(),
		httputil.WithShapeBody(fields, modifyChannelShape))
}

// DeleteChannel deletes a channel, or closes it if it is a DM channel.
func (c *Client) DeleteChannel(channelID discord.Snowflake) error {
	return c.FastRequest("DELETE", "/channels/"+channelID.String())
}

// EditChannelPermission edits a channel's permission overwrite for a user or
// role.
func (c *Client) EditChannelPermission(
	channelID discord.Snowflake, overwrite discord.Overwrite) error {

	url := "/channels/" + channelID.String() + "/permissions/" + overwrite.ID.String()
	overwrite.ID = ""

	return c.FastRequest("PUT", url, httputil.WithJSONBody(overwrite))
}

// DeleteChannelPermission deletes a channel permission overwrite.
func (c *Client) DeleteChannelPermission(channelID, overwriteID discord.Snowflake) error {
	return c.FastRequest("DELETE",
		"/channels/"+channelID.String()+"/permissions/"+overwriteID.String())
}

// Typing posts a typing indicator to the channel. Users are shown as typing
// until a message is sent or ten seconds pass.
func (c *Client) Typing(channelID discord.Snowflake) error {
	return c.FastRequest("POST", "/channels/"+channelID.String()+"/typing")
}

// PinnedMessages returns the channel's pinned messages.
func (c *Client) PinnedMessages(channelID discord.Snowflake) ([]discord.Message, error) {
	var pinned []discord.Message
	return pinned, c.RequestJSON(&pinned, "GET", "/channels/"+channelID.String()+"/pins")
}

// PinMessage pins a message in the channel.
func (c *Client) PinMessage(channelID, messageID discord.Snowflake) error {
	return c.FastRequest("PUT",
		"/channels/"+channelID.String()+"/pins/"+messageID.String())
}

// UnpinMessage unpins a message.
func (c *Client) UnpinMessage(channelID, messageID discord.Snowflake) error {
	return c.FastRequest("DELETE",
		"/channels/"+channelID.String()+"/pins/"+messageID.String())
}
