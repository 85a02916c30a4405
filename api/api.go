// Package api provides an interface to interact with the Discord REST API.
// It handles rate limiting, as well as authorizing and more. Every typed
// endpoint wrapper delegates to the Send primitive, which owns route-scoped
// rate limiting and continuation delivery.
package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/wavebird/concord"
	"github.com/wavebird/concord/api/rate"
	"github.com/wavebird/concord/utils/httputil"
	"github.com/wavebird/concord/utils/httputil/httpdriver"
	"github.com/wavebird/concord/utils/json"
)

const (
	BaseEndpoint = "https://discordapp.com"
	APIVersion   = "6"
	APIPath      = "/api/v" + APIVersion

	Endpoint        = BaseEndpoint + APIPath + "/"
	EndpointGateway = Endpoint + "gateway"
)

var UserAgent = "DiscordBot (https://github.com/wavebird/concord, v" + concord.Version + ")"

// ErrClosed is returned by operations attempted on a closed client or
// session. Outstanding continuations are drained with it on Close.
var ErrClosed = errors.New("session is closed")

type Client struct {
	*httputil.Client
	Limiter *rate.Limiter

	// Token is the raw Authorization header value, usually "Bot <token>".
	Token string

	Log zerolog.Logger

	closed *atomic.Bool
	cancel context.CancelFunc

	gatewayMu    sync.Mutex
	gatewayCache map[string]string // base URL -> wss URL
}

// NewClient creates a client authorized with the given token. Bot tokens
// must be prefixed with "Bot ".
func NewClient(token string) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	cli := &Client{
		Client:  httputil.NewClient().WithContext(ctx),
		Limiter: rate.NewLimiter(APIPath),
		Token:   token,

		Log: zerolog.Nop(),

		closed:       atomic.NewBool(false),
		cancel:       cancel,
		gatewayCache: map[string]string{},
	}

	cli.Client.OnRequest = []httputil.RequestOption{
		func(r httpdriver.Request) error {
			if cli.Token != "" {
				r.AddHeader(http.Header{
					"Authorization": {cli.Token},
				})
			}

			r.AddHeader(http.Header{
				"User-Agent":            {UserAgent},
				"X-RateLimit-Precision": {"millisecond"},
			})

			return cli.Limiter.Acquire(r.GetContext(), r.GetPath())
		},
	}

	cli.Client.OnResponse = []httputil.ResponseFunc{
		func(r httpdriver.Request, resp httpdriver.Response) error {
			return cli.Limiter.Release(r.GetPath(), httpdriver.OptHeader(resp))
		},
	}

	return cli
}

// WithLogger returns the client with the given logger attached.
func (c *Client) WithLogger(log zerolog.Logger) *Client {
	c.Log = log
	return c
}

// Close cancels every in-flight request; their continuations complete with
// ErrClosed. Further calls fail with ErrClosed synchronously.
func (c *Client) Close() {
	c.closed.Store(true)
	c.cancel()
}

// GatewayData is the payload of the gateway discovery endpoint.
type GatewayData struct {
	URL string `json:"url"`
}

// GatewayURL asks Discord for a Websocket URL to the gateway. The answer is
// cached per base URL; the cache is effectively read-only after the first
// discovery.
func (c *Client) GatewayURL() (string, error) {
	c.gatewayMu.Lock()
	cached, ok := c.gatewayCache[BaseEndpoint]
	c.gatewayMu.Unlock()

	if ok {
		return cached, nil
	}

	var g GatewayData
	if err := c.RequestJSON(&g, "GET", "/gateway"); err != nil {
		return "", errors.Wrap(err, "failed to discover gateway URL")
	}

	c.gatewayMu.Lock()
	c.gatewayCache[BaseEndpoint] = g.URL
	c.gatewayMu.Unlock()

	return g.URL, nil
}

// RequestJSON sends verb resource through Send, waits for completion, and
// decodes the response body into to (unless to is nil).
func (c *Client) RequestJSON(to interface{}, verb, resource string, opts ...httputil.RequestOption) error {
	data, _, err := c.Send(verb, resource, nil, opts...).Wait(c.Context())
	if err != nil {
		return err
	}

	if to == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, to); err != nil {
		return httputil.JSONError{Err: err}
	}

	return nil
}

// FastRequest sends verb resource through Send and waits, discarding the
// response body.
func (c *Client) FastRequest(verb, resource string, opts ...httputil.RequestOption) error {
	_, _, err := c.Send(verb, resource, nil, opts...).Wait(c.Context())
	return err
}
