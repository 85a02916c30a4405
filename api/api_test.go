package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/wavebird/concord/api/rate"
	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/utils/httputil/httpdriver"
	"github.com/wavebird/concord/utils/json"
)

func mockClient(send func(req *httpdriver.MockRequest) (httpdriver.Response, error)) *Client {
	c := NewClient("Bot totallyvalidtoken")
	c.Client.Client = &httpdriver.MockClient{SendRequest: send}
	return c
}

func TestSendBadVerb(t *testing.T) {
	c := mockClient(func(req *httpdriver.MockRequest) (httpdriver.Response, error) {
		t.Fatal("unexpected request:", req.URL.Path)
		return nil, nil
	})

	var called bool

	call := c.Send("FETCH", "/channels/1", func(data json.Raw, meta Meta, err error) {
		called = true
		if !errors.Is(err, ErrBadVerb) {
			t.Error("expected ErrBadVerb, got:", err)
		}
	})

	// Programmer errors complete before Send returns.
	select {
	case <-call.Done():
	default:
		t.Fatal("call not done after Send returned")
	}

	if !called {
		t.Fatal("continuation never ran")
	}

	if _, _, err := call.Wait(context.Background()); !errors.Is(err, ErrBadVerb) {
		t.Fatal("expected ErrBadVerb, got:", err)
	}
}

func TestSendBadPath(t *testing.T) {
	c := mockClient(nil)

	_, _, err := c.Send("GET", "channels/1", nil).Wait(context.Background())
	if !errors.Is(err, ErrBadPath) {
		t.Fatal("expected ErrBadPath, got:", err)
	}
}

func TestSendClosed(t *testing.T) {
	c := mockClient(nil)
	c.Close()

	_, _, err := c.Send("GET", "/gateway", nil).Wait(context.Background())
	if !errors.Is(err, ErrClosed) {
		t.Fatal("expected ErrClosed, got:", err)
	}
}

func TestBulkDeleteMessages(t *testing.T) {
	var gotPath string
	var gotBody []byte

	c := mockClient(func(req *httpdriver.MockRequest) (httpdriver.Response, error) {
		gotPath = req.URL.Path
		gotBody = req.Body

		if auth := req.Header.Get("Authorization"); auth != "Bot totallyvalidtoken" {
			t.Error("unexpected Authorization header:", auth)
		}

		return httpdriver.NewMockResponse(204, nil, nil), nil
	})

	err := c.BulkDeleteMessages("ch", []discord.Snowflake{"m1", "m2", "m3"})
	if err != nil {
		t.Fatal("bulk delete failed:", err)
	}

	if expect := APIPath + "/channels/ch/messages/bulk-delete"; gotPath != expect {
		t.Errorf("path = %q, expected %q", gotPath, expect)
	}

	if expect := `{"messages":["m1","m2","m3"]}`; string(gotBody) != expect {
		t.Errorf("body = %q, expected %q", string(gotBody), expect)
	}
}

func TestSendRefusedWithoutIO(t *testing.T) {
	var requests int

	c := mockClient(func(req *httpdriver.MockRequest) (httpdriver.Response, error) {
		requests++

		reset := float64(time.Now().Add(10*time.Second).UnixNano()) / float64(time.Second)

		h := http.Header{}
		h.Set("X-RateLimit-Limit", "5")
		h.Set("X-RateLimit-Remaining", "0")
		h.Set("X-RateLimit-Reset", fmt.Sprintf("%.3f", reset))

		return httpdriver.NewMockResponse(200, h, discord.Message{ID: "m1"}), nil
	})

	// First request drains the route's advertised quota.
	if _, err := c.Message("1337", "m1"); err != nil {
		t.Fatal("first request failed:", err)
	}

	// The second is refused locally before any socket I/O.
	_, err := c.Message("1337", "m2")

	var rl *rate.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatal("expected *RateLimitError, got:", err)
	}

	if requests != 1 {
		t.Fatal("refused request still hit the wire; requests =", requests)
	}
}

func TestMapped429(t *testing.T) {
	c := mockClient(func(req *httpdriver.MockRequest) (httpdriver.Response, error) {
		body := map[string]interface{}{
			"message":     "You are being rate limited.",
			"retry_after": 2500,
			"global":      false,
		}
		return httpdriver.NewMockResponse(429, nil, body), nil
	})

	_, err := c.Channel("55")

	var rl *rate.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatal("expected *RateLimitError, got:", err)
	}

	if rl.ResetIn != 2500*time.Millisecond {
		t.Error("unexpected ResetIn:", rl.ResetIn)
	}
}

func TestFailedOptionReleasesRoute(t *testing.T) {
	var requests int

	c := mockClient(func(req *httpdriver.MockRequest) (httpdriver.Response, error) {
		requests++
		return httpdriver.NewMockResponse(204, nil, nil), nil
	})

	oops := errors.New("encoder broke")

	err := c.FastRequest("GET", "/channels/1", func(r httpdriver.Request) error {
		return oops
	})
	if !errors.Is(err, oops) {
		t.Fatal("expected the option error, got:", err)
	}

	// The failed attempt must not leave the route's bucket locked.
	done := make(chan error, 1)
	go func() {
		done <- c.FastRequest("GET", "/channels/1")
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal("follow-up request failed:", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("follow-up request on the same route hung")
	}

	if requests != 1 {
		t.Fatal("unexpected request count:", requests)
	}
}

func TestCallbackCompletionOrder(t *testing.T) {
	c := mockClient(func(req *httpdriver.MockRequest) (httpdriver.Response, error) {
		return httpdriver.NewMockResponse(200, nil, discord.User{ID: "42"}), nil
	})

	done := make(chan struct{})

	call := c.Send("GET", "/users/42", func(data json.Raw, meta Meta, err error) {
		if err != nil {
			t.Error("unexpected error:", err)
		}
		if meta.Status != 200 {
			t.Error("unexpected status:", meta.Status)
		}
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("continuation never ran")
	}

	data, _, err := call.Wait(context.Background())
	if err != nil {
		t.Fatal("wait failed:", err)
	}

	var u discord.User
	if err := json.Unmarshal(data, &u); err != nil {
		t.Fatal("failed to decode data:", err)
	}
	if u.ID != "42" {
		t.Error("unexpected user:", u.ID)
	}
}

func TestGatewayURLCached(t *testing.T) {
	var requests int

	c := mockClient(func(req *httpdriver.MockRequest) (httpdriver.Response, error) {
		requests++
		return httpdriver.NewMockResponse(200, nil, GatewayData{
			URL: "wss://gateway.discord.gg",
		}), nil
	})

	for i := 0; i < 3; i++ {
		url, err := c.GatewayURL()
		if err != nil {
			t.Fatal("gateway discovery failed:", err)
		}
		if url != "wss://gateway.discord.gg" {
			t.Fatal("unexpected URL:", url)
		}
	}

	if requests != 1 {
		t.Fatal("gateway URL not cached; requests =", requests)
	}
}
