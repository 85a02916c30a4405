package api

import (
	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/utils/httputil"
	"github.com/wavebird/concord/utils/json/shape"
)

// modifyGuildShape is the field table for the guild mutation endpoint.
var modifyGuildShape = shape.Schema{
	"name":                          shape.String,
	"region":                        shape.String,
	"verification_level":            shape.Bare,
	"default_message_notifications": shape.Bare,
	"explicit_content_filter":       shape.Bare,
	"afk_channel_id":                shape.String,
	"afk_timeout":                   shape.Bare,
	"icon":                          shape.String,
	"owner_id":                      shape.String,
	"system_channel_id":             shape.String,
}

// Guild fetches a guild by ID.
func (c *Client) Guild(guildID discord.Snowflake) (*discord.Guild, error) {
	var g *discord.Guild
	return g, c.RequestJSON(&g, "GET", "/guilds/"+guildID.String())
}

// ModifyGuild edits the fields named in the input mapping.
func (c *Client) ModifyGuild(
	guildID discord.Snowflake, fields map[string]interface{}) (*discord.Guild, error) {

	var g *discord.Guild
	return g, c.RequestJSON(
		&g, "PATCH",
		"/guilds/"+guildID.String(),
		httputil.WithShapeBody(fields, modifyGuildShape))
}

// LeaveGuild leaves a guild.
func (c *Client) LeaveGuild(guildID discord.Snowflake) error {
	return c.FastRequest("DELETE", "/users/@me/guilds/"+guildID.String())
}

// Channels returns the guild's channels.
func (c *Client) Channels(guildID discord.Snowflake) ([]discord.Channel, error) {
	var chs []discord.Channel
	return chs, c.RequestJSON(&chs, "GET", "/guilds/"+guildID.String()+"/channels")
}

// Roles returns the guild's roles.
func (c *Client) Roles(guildID discord.Snowflake) ([]discord.Role, error) {
	var roles []discord.Role
	return roles, c.RequestJSON(&roles, "GET", "/guilds/"+guildID.String()+"/roles")
}
