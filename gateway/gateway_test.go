package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/wavebird/concord/utils/json"
	"github.com/wavebird/concord/utils/wsutil"
)

// fakeConn scripts the server side of a handshake: Hello on dial, READY on
// Identify, RESUMED on Resume, and an ack per heartbeat.
type fakeConn struct {
	mu     sync.Mutex
	events chan wsutil.Event
	sent   []OP
	closed bool
}

func (c *fakeConn) Dial(ctx context.Context, addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = make(chan wsutil.Event, wsutil.WSBuffer)
	c.closed = false

	c.events <- wsutil.Event{Data: []byte(`{"op":10,"d":{"heartbeat_interval":3600000}}`)}
	return nil
}

func (c *fakeConn) Listen() <-chan wsutil.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.events
}

func (c *fakeConn) Send(ctx context.Context, b []byte) error {
	var op OP
	if err := json.Unmarshal(b, &op); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, op)

	switch op.Code {
	case IdentifyOP:
		c.events <- wsutil.Event{Data: []byte(`{
			"op": 0, "s": 1, "t": "READY",
			"d": {
				"v": 6,
				"session_id": "fake-session",
				"user": {"id": "u1"},
				"guilds": [],
				"private_channels": []
			}
		}`)}
	case ResumeOP:
		c.events <- wsutil.Event{Data: []byte(`{"op":0,"s":2,"t":"RESUMED","d":{}}`)}
	case HeartbeatOP:
		c.events <- wsutil.Event{Data: []byte(`{"op":11}`)}
	}

	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

// pushClose emulates a server-initiated close frame, after which the read
// loop ends.
func (c *fakeConn) pushClose(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events <- wsutil.Event{Error: &wsutil.CloseError{Code: code, Reason: reason}}
	c.closed = true
	close(c.events)
}

func (c *fakeConn) ops() []OP {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]OP(nil), c.sent...)
}

func newFakeGateway() (*Gateway, *fakeConn) {
	conn := new(fakeConn)

	g := NewCustomGateway("wss://localhost", "token")
	g.WS = wsutil.NewCustom(conn, "wss://localhost")
	// Tests redial immediately.
	g.WS.DialLimiter = rate.NewLimiter(rate.Inf, 1)

	return g, conn
}

func TestHandshakeIdentify(t *testing.T) {
	g, conn := newFakeGateway()

	if err := g.Open(); err != nil {
		t.Fatal("failed to open:", err)
	}

	if g.SessionID != "fake-session" {
		t.Error("session ID not absorbed:", g.SessionID)
	}
	if g.Sequence.Load() != 1 {
		t.Error("sequence not advanced:", g.Sequence.Load())
	}

	ops := conn.ops()
	if len(ops) == 0 || ops[0].Code != IdentifyOP {
		t.Fatal("fresh session did not identify; sent ops:", ops)
	}

	if err := g.Close(); err != nil {
		t.Fatal("failed to close:", err)
	}
}

func TestHandshakeResume(t *testing.T) {
	g, conn := newFakeGateway()

	if err := g.Open(); err != nil {
		t.Fatal("failed to open:", err)
	}
	if err := g.Close(); err != nil {
		t.Fatal("failed to close:", err)
	}

	// The retained session ID and sequence must resume, not identify.
	if err := g.Open(); err != nil {
		t.Fatal("failed to reopen:", err)
	}
	defer g.Close()

	ops := conn.ops()

	resumeAt := -1
	for i, op := range ops {
		if op.Code == ResumeOP {
			resumeAt = i
		}
	}
	if resumeAt == -1 {
		t.Fatal("retained session did not resume; sent ops:", ops)
	}

	for _, op := range ops[resumeAt:] {
		if op.Code == IdentifyOP {
			t.Fatal("identified after an acknowledged resume")
		}
	}

	var resume ResumeData
	if err := json.Unmarshal(ops[resumeAt].Data, &resume); err != nil {
		t.Fatal("failed to decode resume payload:", err)
	}
	if resume.SessionID != "fake-session" || resume.Sequence != 1 {
		t.Errorf("unexpected resume payload: %+v", resume)
	}
}

func TestFatalCloseTerminal(t *testing.T) {
	g, conn := newFakeGateway()

	fatal := make(chan error, 1)
	g.FatalErrorCallback = func(err error) { fatal <- err }

	if err := g.Open(); err != nil {
		t.Fatal("failed to open:", err)
	}

	conn.pushClose(4004, "Authentication failed.")

	select {
	case err := <-fatal:
		if !errors.Is(err, ErrAuth) {
			t.Fatal("unexpected terminal error:", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("terminal close code never surfaced")
	}

	// Closing the already-dead gateway must return, not hang.
	done := make(chan struct{})
	go func() {
		g.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close hung after the terminal close")
	}
}

func TestSequenceAdvance(t *testing.T) {
	seq := NewSequence()

	for _, s := range []int64{1, 2, 2, 5} {
		if !seq.Advance(s) {
			t.Fatal("unexpected regression at:", s)
		}
	}

	if seq.Load() != 5 {
		t.Fatal("unexpected sequence:", seq.Load())
	}

	// Regressions are protocol errors and leave the stored value alone.
	if seq.Advance(3) {
		t.Fatal("regression not detected")
	}
	if seq.Load() != 5 {
		t.Fatal("sequence clobbered by regression:", seq.Load())
	}
}

func TestIdentifyNormalize(t *testing.T) {
	g := NewCustomGateway("wss://localhost", "token")

	g.Identifier.LargeThreshold = 10
	g.Identifier.normalize(g.Log)
	if g.Identifier.LargeThreshold != 50 {
		t.Error("low threshold not clamped:", g.Identifier.LargeThreshold)
	}

	g.Identifier.LargeThreshold = 9999
	g.Identifier.normalize(g.Log)
	if g.Identifier.LargeThreshold != 250 {
		t.Error("high threshold not clamped:", g.Identifier.LargeThreshold)
	}

	g.Identifier.SetShard(5, 2)
	g.Identifier.normalize(g.Log)
	if *g.Identifier.Shard != *DefaultShard() {
		t.Error("invalid shard tuple not corrected:", g.Identifier.Shard)
	}
}

func TestDecodeOP(t *testing.T) {
	ev := wsutil.Event{
		Data: []byte(`{"op":10,"d":{"heartbeat_interval":41250}}`),
	}

	var hello HelloEvent
	if _, err := AssertEvent(json.Default, ev, HelloOP, &hello); err != nil {
		t.Fatal("failed to assert Hello:", err)
	}

	if hello.HeartbeatInterval != 41250 {
		t.Fatal("unexpected interval:", hello.HeartbeatInterval)
	}

	// Wrong opcode must not pass the assertion.
	if _, err := AssertEvent(json.Default, ev, HeartbeatAckOP, &hello); err == nil {
		t.Fatal("asserted the wrong opcode")
	}
}

func TestHandleDispatchReady(t *testing.T) {
	g := NewCustomGateway("wss://localhost", "token")

	op := &OP{
		Code:      DispatchOP,
		Sequence:  1,
		EventName: "READY",
		Data: []byte(`{
			"v": 6,
			"session_id": "abc",
			"user": {"id": "u1"},
			"guilds": [{"id": "g1"}],
			"private_channels": []
		}`),
	}

	if err := HandleOP(g, op); err != nil {
		t.Fatal("failed to handle READY:", err)
	}

	if g.SessionID != "abc" {
		t.Error("session ID not absorbed:", g.SessionID)
	}
	if g.Sequence.Load() != 1 {
		t.Error("sequence not advanced:", g.Sequence.Load())
	}

	ev := <-g.Events

	ready, ok := ev.(*ReadyEvent)
	if !ok {
		t.Fatalf("unexpected event type: %T", ev)
	}

	if ready.User.ID != "u1" {
		t.Error("unexpected user:", ready.User.ID)
	}
	if len(ready.Guilds) != 1 || ready.Guilds[0].ID != "g1" {
		t.Error("unexpected guilds:", ready.Guilds)
	}
	if len(ready.Raw) == 0 {
		t.Error("raw payload not retained")
	}
}

func TestHandleUnknownDispatch(t *testing.T) {
	g := NewCustomGateway("wss://localhost", "token")

	op := &OP{
		Code:      DispatchOP,
		Sequence:  2,
		EventName: "TOTALLY_NEW_EVENT",
		Data:      []byte(`{"answer":42}`),
	}

	if err := HandleOP(g, op); err != nil {
		t.Fatal("failed to handle unknown event:", err)
	}

	ev := <-g.Events

	unknown, ok := ev.(*UnknownEvent)
	if !ok {
		t.Fatalf("unexpected event type: %T", ev)
	}

	if unknown.EventName != "TOTALLY_NEW_EVENT" {
		t.Error("unexpected event name:", unknown.EventName)
	}
	if string(unknown.Raw) != `{"answer":42}` {
		t.Error("raw payload not forwarded:", string(unknown.Raw))
	}
}

func TestFatalCloseError(t *testing.T) {
	tests := []struct {
		code int
		err  error
	}{
		{4004, ErrAuth},
		{4010, ErrShard},
		{4011, ErrShard},
		{4012, ErrFatal},
		{4013, ErrFatal},
		{4014, ErrFatal},
		{4000, nil},
		{1001, nil},
	}

	for _, test := range tests {
		if err := FatalCloseError(test.code); !errors.Is(err, test.err) {
			t.Errorf("FatalCloseError(%d) = %v, expected %v", test.code, err, test.err)
		}
	}
}
