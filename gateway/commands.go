package gateway

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/utils/json"
)

// ErrMissingForResume is returned by Resume when there is no session ID or
// sequence to resume from.
var ErrMissingForResume = errors.New("missing session ID or sequence for resuming")

// ErrOverStatusBudget is returned by UpdateStatus when the 5-per-minute
// status ceiling is hit; the update is dropped.
var ErrOverStatusBudget = errors.New("status update dropped: over 5/60s budget")

// Identify sends an Identify with the engine's WSTimeout.
func (g *Gateway) Identify() error {
	ctx, cancel := context.WithTimeout(context.Background(), g.WSTimeout)
	defer cancel()

	return g.IdentifyCtx(ctx)
}

// IdentifyCtx waits for the identify rate limits, then sends an Identify.
// Handshake frames wait for the send budget instead of dropping.
func (g *Gateway) IdentifyCtx(ctx context.Context) error {
	if err := g.Identifier.Wait(ctx); err != nil {
		return errors.Wrap(err, "failed to wait for identify limits")
	}

	g.Identifier.normalize(g.Log)

	return g.SendCtx(ctx, IdentifyOP, g.Identifier)
}

// ResumeData is the op 6 payload.
type ResumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// Resume sends a Resume with the engine's WSTimeout.
func (g *Gateway) Resume() error {
	ctx, cancel := context.WithTimeout(context.Background(), g.WSTimeout)
	defer cancel()

	return g.ResumeCtx(ctx)
}

// ResumeCtx sends a Resume frame. It doesn't do the reconnect dance; that is
// the job of ReconnectCtx and start.
func (g *Gateway) ResumeCtx(ctx context.Context) error {
	var (
		ses = g.SessionID
		seq = g.Sequence.Load()
	)

	if ses == "" || seq == 0 {
		return ErrMissingForResume
	}

	return g.SendCtx(ctx, ResumeOP, ResumeData{
		Token:     g.Identifier.Token,
		SessionID: ses,
		Sequence:  seq,
	})
}

// Heartbeat sends a heartbeat with the heartrate as its timeout.
func (g *Gateway) Heartbeat() error {
	ctx, cancel := context.WithTimeout(context.Background(), g.Pacemaker.Heartrate)
	defer cancel()

	return g.HeartbeatCtx(ctx)
}

// HeartbeatCtx sends a single heartbeat carrying the last observed sequence,
// or null if none was seen yet. Heartbeats wait for the send budget rather
// than dropping; a skipped beat would read as a dead connection.
func (g *Gateway) HeartbeatCtx(ctx context.Context) error {
	data := json.Raw("null")
	if seq := g.Sequence.Load(); seq > 0 {
		data = json.Raw(strconv.FormatInt(seq, 10))
	}

	return g.sendOp(ctx, false, OP{Code: HeartbeatOP, Data: data})
}

// UpdateStatusData is the op 3 payload.
type UpdateStatusData struct {
	Since  *int64            `json:"since"` // unix ms, or null
	Game   *discord.Activity `json:"game"`  // nullable
	Status string            `json:"status"`
	AFK    bool              `json:"afk"`
}

// UpdateStatus sends a presence update. Status updates sit under a tighter
// 5-per-60s ceiling on top of the shared send budget; frames over either
// budget are dropped with an error rather than queued.
func (g *Gateway) UpdateStatus(data UpdateStatusData) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.WSTimeout)
	defer cancel()

	if !g.statusLimit.Allow() {
		g.Log.Warn().Msg("status update dropped")
		return ErrOverStatusBudget
	}

	return g.TrySendCtx(ctx, StatusUpdateOP, data)
}

// RequestGuildMembersData is the op 8 payload.
type RequestGuildMembersData struct {
	GuildID discord.Snowflake `json:"guild_id"`

	Query string `json:"query"`
	Limit uint   `json:"limit"`
}

// RequestGuildMembers asks the gateway to stream a guild's member list back
// as GUILD_MEMBERS_CHUNK dispatches.
func (g *Gateway) RequestGuildMembers(data RequestGuildMembersData) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.WSTimeout)
	defer cancel()

	return g.TrySendCtx(ctx, RequestGuildMembersOP, data)
}

// SendCtx marshals v into the envelope and sends it, waiting for the send
// budget. It is meant for frames that must not be dropped.
func (g *Gateway) SendCtx(ctx context.Context, code OPCode, v interface{}) error {
	op, err := g.packOp(code, v)
	if err != nil {
		return err
	}

	return g.sendOp(ctx, false, op)
}

// TrySendCtx sends the envelope only if the send budget allows it;
// over-budget command frames are dropped with wsutil.ErrOverSendBudget.
func (g *Gateway) TrySendCtx(ctx context.Context, code OPCode, v interface{}) error {
	op, err := g.packOp(code, v)
	if err != nil {
		return err
	}

	return g.sendOp(ctx, true, op)
}

func (g *Gateway) packOp(code OPCode, v interface{}) (OP, error) {
	op := OP{Code: code}

	if v != nil {
		data, err := g.Driver.Marshal(v)
		if err != nil {
			return op, errors.Wrap(err, "failed to encode payload data")
		}
		op.Data = data
	}

	return op, nil
}

func (g *Gateway) sendOp(ctx context.Context, try bool, op OP) error {
	b, err := g.Driver.Marshal(op)
	if err != nil {
		return errors.Wrap(err, "failed to encode envelope")
	}

	if try {
		return g.WS.TrySend(ctx, b)
	}

	return g.WS.SendCtx(ctx, b)
}
