package api

import (
	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/utils/httputil"
	"github.com/wavebird/concord/utils/json/shape"
)

// modifyMemberShape is the field table for the member mutation endpoint.
// Roles replace the member's full role list and are sent as ID strings.
var modifyMemberShape = shape.Schema{
	"nick":       shape.String,
	"roles":      shape.Array(shape.String),
	"mute":       shape.Bare,
	"deaf":       shape.Bare,
	"channel_id": shape.String,
}

// Member fetches a guild member.
func (c *Client) Member(guildID, userID discord.Snowflake) (*discord.Member, error) {
	var m *discord.Member
	return m, c.RequestJSON(&m, "GET",
		"/guilds/"+guildID.String()+"/members/"+userID.String())
}

// MembersQuery is the query filter for listing guild members.
type MembersQuery struct {
	Limit uint              `schema:"limit,omitempty"` // 1-1000, default 1
	After discord.Snowflake `schema:"after,omitempty"`
}

// Members returns the guild's members filtered by the query.
func (c *Client) Members(
	guildID discord.Snowflake, query MembersQuery) ([]discord.Member, error) {

	var members []discord.Member
	return members, c.RequestJSON(
		&members, "GET",
		"/guilds/"+guildID.String()+"/members",
		httputil.WithSchema(c.SchemaEncoder, query))
}

// ModifyMember edits the fields named in the input mapping. A "roles" entry
// must be a []string of role IDs and replaces the member's roles wholesale.
func (c *Client) ModifyMember(
	guildID, userID discord.Snowflake, fields map[string]interface{}) error {

	return c.FastRequest(
		"PATCH",
		"/guilds/"+guildID.String()+"/members/"+userID.String(),
		httputil.WithShapeBody(fields, modifyMemberShape))
}

// AddRole adds a role to the member.
func (c *Client) AddRole(guildID, userID, roleID discord.Snowflake) error {
	return c.FastRequest("PUT",
		"/guilds/"+guildID.String()+"/members/"+userID.String()+"/roles/"+roleID.String())
}

// RemoveRole removes a role from the member.
func (c *Client) RemoveRole(guildID, userID, roleID discord.Snowflake) error {
	return c.FastRequest("DELETE",
		"/guilds/"+guildID.String()+"/members/"+userID.String()+"/roles/"+roleID.String())
}

// Kick removes a member from the guild.
func (c *Client) Kick(guildID, userID discord.Snowflake) error {
	return c.FastRequest("DELETE",
		"/guilds/"+guildID.String()+"/members/"+userID.String())
}
