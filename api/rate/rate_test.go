package rate

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestParseRoute(t *testing.T) {
	tests := []struct {
		path  string
		route string
	}{
		{"/channels/123456/messages", "/channels/123456"},
		{"/channels/123456/messages/789", "/channels/123456"},
		{"/channels/999/messages/bulk-delete", "/channels/999"},
		{"/guilds/42/members/77", "/guilds/42"},
		{"/guilds/42/roles", "/guilds/42"},
		{"/users/@me", "/users"},
		{"/gateway", "/gateway"},
		{"/invites/abcdef?with_counts=true", "/invites"},
	}

	for _, test := range tests {
		if route := ParseRoute(test.path); route != test.route {
			t.Errorf("ParseRoute(%q) = %q, expected %q", test.path, route, test.route)
		}
	}
}

func release(t *testing.T, l *Limiter, path string, headers http.Header) {
	t.Helper()

	if err := l.Release(path, headers); err != nil {
		t.Fatal("failed to release:", err)
	}
}

func TestAcquireRefusesExhaustedRoute(t *testing.T) {
	l := NewLimiter("")
	ctx := context.Background()

	const path = "/channels/1337/messages"

	if err := l.Acquire(ctx, path); err != nil {
		t.Fatal("first acquire refused:", err)
	}

	// Truncate to whole milliseconds so %.3f cannot round the reset up past
	// now+10s.
	reset := float64(time.Now().Add(10*time.Second).UnixNano()/int64(time.Millisecond)) / 1000

	headers := http.Header{}
	headers.Set("X-RateLimit-Limit", "5")
	headers.Set("X-RateLimit-Remaining", "0")
	headers.Set("X-RateLimit-Reset", fmt.Sprintf("%.3f", reset))

	release(t, l, path, headers)

	err := l.Acquire(ctx, path)

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatal("expected *RateLimitError, got:", err)
	}

	if rl.ResetIn < 9*time.Second || rl.ResetIn > 10*time.Second {
		t.Error("unexpected ResetIn:", rl.ResetIn)
	}

	if rl.Route != "/channels/1337" {
		t.Error("unexpected route:", rl.Route)
	}

	// A different channel must not share the bucket.
	if err := l.Acquire(ctx, "/channels/1338/messages"); err != nil {
		t.Fatal("unrelated route refused:", err)
	}
}

func TestAcquireRestoresAfterReset(t *testing.T) {
	l := NewLimiter("")
	ctx := context.Background()

	const path = "/guilds/1/bans"

	if err := l.Acquire(ctx, path); err != nil {
		t.Fatal("first acquire refused:", err)
	}

	// Advertise an exhausted quota whose reset (plus grace) is already in
	// the past.
	past := float64(time.Now().Add(-ResetGrace-time.Second).UnixNano()) / float64(time.Second)

	headers := http.Header{}
	headers.Set("X-RateLimit-Limit", "5")
	headers.Set("X-RateLimit-Remaining", "0")
	headers.Set("X-RateLimit-Reset", fmt.Sprintf("%.3f", past))

	release(t, l, path, headers)

	if err := l.Acquire(ctx, path); err != nil {
		t.Fatal("acquire after reset refused:", err)
	}
}

func TestBurstGuard(t *testing.T) {
	l := NewLimiter("")
	ctx := context.Background()

	const path = "/webhooks/55"

	var refused *LocalRateLimitError

	for i := 0; i < BurstLimitSend+1; i++ {
		err := l.Acquire(ctx, path)
		if err == nil {
			release(t, l, path, nil)
			continue
		}

		if !errors.As(err, &refused) {
			t.Fatal("expected *LocalRateLimitError, got:", err)
		}
	}

	if refused == nil {
		t.Fatal("burst guard never tripped")
	}

	if refused.Route != "/webhooks" {
		t.Error("unexpected route:", refused.Route)
	}
}

func TestPrefixStripped(t *testing.T) {
	l := NewLimiter("/api/v6")
	ctx := context.Background()

	if err := l.Acquire(ctx, "/api/v6/channels/12/messages"); err != nil {
		t.Fatal("acquire refused:", err)
	}

	reset := float64(time.Now().Add(10*time.Second).UnixNano()) / float64(time.Second)

	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "0")
	headers.Set("X-RateLimit-Reset", fmt.Sprintf("%.3f", reset))

	release(t, l, "/api/v6/channels/12/messages", headers)

	// The same channel via a different sub-resource shares the bucket.
	err := l.Acquire(ctx, "/api/v6/channels/12/typing")

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatal("expected *RateLimitError, got:", err)
	}
}
