package api

import (
	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/utils/httputil"
)

// User fetches a user by ID.
func (c *Client) User(userID discord.Snowflake) (*discord.User, error) {
	var u *discord.User
	return u, c.RequestJSON(&u, "GET", "/users/"+userID.String())
}

// Me returns the current user.
func (c *Client) Me() (*discord.User, error) {
	var me *discord.User
	return me, c.RequestJSON(&me, "GET", "/users/@me")
}

// CreatePrivateChannel opens (or reuses) a DM channel with the recipient.
func (c *Client) CreatePrivateChannel(recipientID discord.Snowflake) (*discord.Channel, error) {
	var body = struct {
		RecipientID discord.Snowflake `json:"recipient_id"`
	}{recipientID}

	var ch *discord.Channel
	return ch, c.RequestJSON(&ch, "POST", "/users/@me/channels",
		httputil.WithJSONBody(body))
}
