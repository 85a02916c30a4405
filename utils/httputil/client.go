// Package httputil provides abstractions around the common needs of HTTP. It
// also allows swapping in and out the HTTP client.
package httputil

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"

	"github.com/pkg/errors"

	"github.com/wavebird/concord/utils/httputil/httpdriver"
	"github.com/wavebird/concord/utils/json"
)

// StatusTooManyRequests is the HTTP status code Discord sends on
// rate-limiting.
const StatusTooManyRequests = 429

// Retries is the default number of attempts per request. The dispatcher
// never retries failed HTTP statuses; a value above 1 only re-attempts
// transport-level failures.
var Retries uint = 1

type Client struct {
	httpdriver.Client
	SchemaEncoder

	// OnRequest, if not nil, will be copied and prefixed on each Request.
	OnRequest []RequestOption

	// OnResponse is called after every Do() call. Response might be nil if
	// Do() errors out. The error returned will override Do's if it's not
	// nil.
	OnResponse []ResponseFunc

	// Retries overrides the global Retries variable.
	Retries uint

	context context.Context
}

func NewClient() *Client {
	return &Client{
		Client:        httpdriver.NewClient(),
		SchemaEncoder: &DefaultSchema{},
		Retries:       Retries,
		context:       context.Background(),
	}
}

// Copy returns a shallow copy of the client.
func (c *Client) Copy() *Client {
	cl := new(Client)
	*cl = *c
	return cl
}

// WithContext returns a copy of the client with the given context.
func (c *Client) WithContext(ctx context.Context) *Client {
	c = c.Copy()
	c.context = ctx
	return c
}

// Context is the client's shared context for all future calls. It's
// Background by default.
func (c *Client) Context() context.Context {
	return c.context
}

func (c *Client) applyOptions(r httpdriver.Request, extra []RequestOption) error {
	for _, opt := range c.OnRequest {
		if err := opt(r); err != nil {
			return err
		}
	}
	for _, opt := range extra {
		if err := opt(r); err != nil {
			return err
		}
	}

	return nil
}

// MeanwhileMultipart streams a multipart body while the request is being
// sent. The writer callback runs in its own goroutine; if it fails, the
// request is cancelled and its error returned.
func (c *Client) MeanwhileMultipart(
	writer func(*multipart.Writer) error,
	method, url string, opts ...RequestOption) (httpdriver.Response, error) {

	ctx, cancel := context.WithCancel(c.context)
	defer cancel()

	r, w := io.Pipe()
	body := multipart.NewWriter(w)

	var bgErr error

	go func() {
		if err := writer(body); err != nil {
			bgErr = err
			cancel()
		}

		// Close the writer so the body gets flushed to the HTTP reader.
		w.Close()
	}()

	opts = PrependOptions(
		opts,
		WithBody(r),
		WithContentType(body.FormDataContentType()),
	)

	resp, err := c.WithContext(ctx).Request(method, url, opts...)
	if err != nil && bgErr != nil {
		return nil, bgErr
	}
	return resp, err
}

// FastRequest performs a request and discards the body.
func (c *Client) FastRequest(method, url string, opts ...RequestOption) error {
	r, err := c.Request(method, url, opts...)
	if err != nil {
		return err
	}

	return r.GetBody().Close()
}

// RequestJSON performs a request and decodes the response body into to,
// unless the response has no content.
func (c *Client) RequestJSON(to interface{}, method, url string, opts ...RequestOption) error {
	opts = PrependOptions(opts, JSONRequest)

	r, err := c.Request(method, url, opts...)
	if err != nil {
		return err
	}

	var body, status = r.GetBody(), r.GetStatus()
	defer body.Close()

	if status == httpdriver.NoContent || to == nil {
		return nil
	}

	if err := json.DecodeStream(body, to); err != nil {
		return JSONError{err}
	}

	return nil
}

// Request performs a request and returns the response if its status is in
// the 2xx range. Any other status is returned as an *HTTPError along with
// the raw body.
func (c *Client) Request(method, url string, opts ...RequestOption) (httpdriver.Response, error) {
	retries := c.Retries
	if retries < 1 {
		retries = 1
	}

	var r httpdriver.Response
	var doErr error

	for i := uint(0); i < retries; i++ {
		q, err := c.Client.NewRequest(c.context, method, url)
		if err != nil {
			return nil, RequestError{err}
		}

		if err := c.applyOptions(q, opts); err != nil {
			// The request never hits the wire, but the response hooks must
			// still run: OnRequest may have acquired resources (rate-limit
			// buckets) that only OnResponse releases.
			for _, fn := range c.OnResponse {
				fn(q, nil)
			}
			return nil, errors.Wrap(err, "failed to apply options")
		}

		r, doErr = c.Client.Do(q)

		// Call OnResponse() even if the request failed.
		for _, fn := range c.OnResponse {
			if err := fn(q, r); err != nil {
				return nil, err
			}
		}

		if doErr == nil {
			break
		}
	}

	if doErr != nil {
		return nil, RequestError{doErr}
	}

	if status := r.GetStatus(); status < 200 || status > 299 {
		var body = r.GetBody()
		defer body.Close()

		buf := bytes.Buffer{}
		buf.ReadFrom(body)

		httpErr := &HTTPError{
			Status: status,
			Body:   buf.Bytes(),
		}

		// Optionally unmarshal the error body.
		json.Unmarshal(httpErr.Body, &httpErr)

		return r, httpErr
	}

	return r, nil
}
