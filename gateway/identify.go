package gateway

import (
	"context"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Identity is the default identify properties. The dollar-prefixed keys are
// what the v6 gateway expects.
var Identity = IdentifyProperties{
	OS:      runtime.GOOS,
	Browser: "Concord",
	Device:  "Concord",
}

type IdentifyProperties struct {
	OS      string `json:"$os"`
	Browser string `json:"$browser"`
	Device  string `json:"$device"`

	Referrer        string `json:"$referrer,omitempty"`
	ReferringDomain string `json:"$referring_domain,omitempty"`
}

// Shard is the [id, count] tuple sent in Identify.
type Shard [2]int

// DefaultShard is the unsharded tuple.
func DefaultShard() *Shard {
	return &Shard{0, 1}
}

// ShardID returns the shard's index.
func (s Shard) ShardID() int {
	return s[0]
}

// NumShards returns the total shard count.
func (s Shard) NumShards() int {
	return s[1]
}

type IdentifyData struct {
	Token      string             `json:"token"`
	Properties IdentifyProperties `json:"properties"`

	Compress       bool   `json:"compress"`
	LargeThreshold uint   `json:"large_threshold,omitempty"`
	Shard          *Shard `json:"shard,omitempty"`
}

// SetShard sets the shard tuple on the identify payload.
func (i *IdentifyData) SetShard(id, num int) {
	if i.Shard == nil {
		i.Shard = new(Shard)
	}
	i.Shard[0], i.Shard[1] = id, num
}

// normalize clamps out-of-range fields instead of failing the handshake, and
// logs what it touched.
func (i *IdentifyData) normalize(log zerolog.Logger) {
	if i.LargeThreshold < 50 || i.LargeThreshold > 250 {
		clamped := uint(50)
		if i.LargeThreshold > 250 {
			clamped = 250
		}

		log.Warn().
			Uint("large_threshold", i.LargeThreshold).
			Uint("clamped", clamped).
			Msg("large_threshold out of range")

		i.LargeThreshold = clamped
	}

	if s := i.Shard; s != nil {
		if s[1] < 1 || s[0] < 0 || s[0] >= s[1] {
			log.Warn().
				Int("shard_id", s[0]).
				Int("num_shards", s[1]).
				Msg("invalid shard tuple, using [0, 1]")

			*s = *DefaultShard()
		}
	}
}

// Identifier wraps IdentifyData with the gateway's identify rate limits: one
// Identify per 5 seconds per shard, and a global daily session budget.
type Identifier struct {
	IdentifyData

	IdentifyShortLimit  *rate.Limiter `json:"-"`
	IdentifyGlobalLimit *rate.Limiter `json:"-"`
}

func DefaultIdentifier(token string) *Identifier {
	return NewIdentifier(IdentifyData{
		Token:      token,
		Properties: Identity,
		Shard:      DefaultShard(),

		Compress:       false,
		LargeThreshold: 50,
	})
}

func NewIdentifier(data IdentifyData) *Identifier {
	return &Identifier{
		IdentifyData:        data,
		IdentifyShortLimit:  rate.NewLimiter(rate.Every(5*time.Second), 1),
		IdentifyGlobalLimit: rate.NewLimiter(rate.Every(24*time.Hour), 1000),
	}
}

// Wait blocks until both identify limiters allow another Identify.
func (i *Identifier) Wait(ctx context.Context) error {
	if err := i.IdentifyShortLimit.Wait(ctx); err != nil {
		return errors.Wrap(err, "failed to wait for short identify limit")
	}
	if err := i.IdentifyGlobalLimit.Wait(ctx); err != nil {
		return errors.Wrap(err, "failed to wait for global identify limit")
	}
	return nil
}
