package api

import (
	"context"
	stdjson "encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/wavebird/concord/api/rate"
	"github.com/wavebird/concord/utils/httputil"
	"github.com/wavebird/concord/utils/json"
)

// ErrBadVerb is returned synchronously by Send for verbs outside
// GET/POST/PUT/PATCH/DELETE.
var ErrBadVerb = errors.New("api: invalid HTTP verb")

// ErrBadPath is returned synchronously by Send when the resource does not
// start with a slash.
var ErrBadPath = errors.New("api: resource must start with /")

var validVerbs = map[string]struct{}{
	"GET":    {},
	"POST":   {},
	"PUT":    {},
	"PATCH":  {},
	"DELETE": {},
}

// Meta carries the transport-level outcome of a Call.
type Meta struct {
	Status int
	Header http.Header

	// Body is the raw response body for non-2xx statuses, where Data is
	// nil.
	Body []byte
}

// Callback is a continuation invoked exactly once when a Call completes.
// Continuations run on the request's goroutine, in completion order across
// concurrent calls, not submission order.
type Callback func(data json.Raw, meta Meta, err error)

// Call is a single-shot future for an in-flight request.
type Call struct {
	done chan struct{}

	data json.Raw
	meta Meta
	err  error
}

// Done returns a channel closed once the call has completed.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call completes or ctx expires.
func (c *Call) Wait(ctx context.Context) (json.Raw, Meta, error) {
	select {
	case <-c.done:
		return c.data, c.meta, c.err
	case <-ctx.Done():
		return nil, Meta{}, ctx.Err()
	}
}

func (c *Call) complete(cb Callback, data json.Raw, meta Meta, err error) *Call {
	c.data = data
	c.meta = meta
	c.err = err
	close(c.done)

	if cb != nil {
		cb(data, meta, err)
	}

	return c
}

// Send is the dispatcher primitive every endpoint wrapper delegates to. It
// issues verb on the versioned resource path, with the client's credential
// attached and the resource's route-scoped rate limits enforced.
//
// Programmer errors (ErrBadVerb, ErrBadPath, ErrClosed) complete the Call
// before Send returns. Everything else completes asynchronously: the
// optional cb runs once with (data, meta, err), and Wait unblocks.
func (c *Client) Send(verb, resource string, cb Callback, opts ...httputil.RequestOption) *Call {
	call := &Call{done: make(chan struct{})}

	if _, ok := validVerbs[verb]; !ok {
		return call.complete(cb, nil, Meta{}, errors.Wrap(ErrBadVerb, verb))
	}

	if len(resource) == 0 || resource[0] != '/' {
		return call.complete(cb, nil, Meta{}, errors.Wrap(ErrBadPath, resource))
	}

	if c.closed.Load() {
		return call.complete(cb, nil, Meta{}, ErrClosed)
	}

	go func() {
		data, meta, err := c.do(verb, resource, opts)
		call.complete(cb, data, meta, err)
	}()

	return call
}

func (c *Client) do(verb, resource string, opts []httputil.RequestOption) (json.Raw, Meta, error) {
	resp, err := c.Client.Request(verb, BaseEndpoint+APIPath+resource, opts...)
	if err != nil {
		return nil, c.errMeta(resource, err), c.mapError(err)
	}

	meta := Meta{
		Status: resp.GetStatus(),
		Header: resp.GetHeader(),
	}

	body := resp.GetBody()
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, meta, httputil.JSONError{Err: err}
	}

	if len(data) > 0 && !stdjson.Valid(data) {
		// The continuation still gets the status; data stays empty.
		c.Log.Warn().
			Str("resource", resource).
			Msg("malformed JSON response body")
		return nil, meta, httputil.JSONError{Err: errors.New("malformed JSON body")}
	}

	return json.Raw(data), meta, nil
}

// errMeta recovers status, headers and raw body for failed requests, so
// continuations can still inspect them.
func (c *Client) errMeta(resource string, err error) Meta {
	var httpErr *httputil.HTTPError
	if errors.As(err, &httpErr) {
		return Meta{Status: httpErr.Status, Body: httpErr.Body}
	}
	return Meta{}
}

// mapError rewrites transport errors into the dispatcher's taxonomy: 429s
// become *rate.RateLimitError, cancellation after Close becomes ErrClosed.
func (c *Client) mapError(err error) error {
	if c.closed.Load() && errors.Is(err, context.Canceled) {
		return ErrClosed
	}

	var httpErr *httputil.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == httputil.StatusTooManyRequests {
		// v6 429 bodies carry retry_after in milliseconds.
		var body struct {
			RetryAfter int64 `json:"retry_after"`
		}
		json.Unmarshal(httpErr.Body, &body)

		return &rate.RateLimitError{
			ResetIn: time.Duration(body.RetryAfter) * time.Millisecond,
		}
	}

	return err
}
