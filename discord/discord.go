// Package discord contains the entity types mirrored from the Discord API:
// users, guilds, channels, members, roles and messages. The types carry only
// the fields the gateway and REST payloads actually ship, keyed by string
// snowflake IDs as they appear on the wire.
package discord

import "time"

// Snowflake is a Discord object ID. Discord serializes them as strings, and
// the session engine treats them as opaque keys.
type Snowflake string

// NullSnowflake is the zero Snowflake, indicating an absent ID.
const NullSnowflake Snowflake = ""

// IsValid returns whether the snowflake is non-empty.
func (s Snowflake) IsValid() bool {
	return s != ""
}

func (s Snowflake) String() string {
	return string(s)
}

// Milliseconds is a duration in milliseconds, as the gateway encodes
// intervals.
type Milliseconds int64

// Duration converts the interval to a time.Duration.
func (ms Milliseconds) Duration() time.Duration {
	return time.Duration(ms) * time.Millisecond
}
