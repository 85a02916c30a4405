package httpdriver

import (
	"context"
	"net/http"
	"time"

	"github.com/gojek/heimdall/v7/httpclient"
)

// HeimdallClient implements Client on top of gojek/heimdall, which adds
// transport-level retries and optional hystrix-style circuit breaking under
// the driver interface.
type HeimdallClient struct {
	Client *httpclient.Client
}

var _ Client = (*HeimdallClient)(nil)

// NewHeimdallClient creates a heimdall-backed driver with the given number
// of transport retries and a 10 second timeout.
func NewHeimdallClient(retries int) *HeimdallClient {
	return &HeimdallClient{
		Client: httpclient.NewClient(
			httpclient.WithHTTPTimeout(10*time.Second),
			httpclient.WithRetryCount(retries),
		),
	}
}

func (c *HeimdallClient) NewRequest(ctx context.Context, method, url string) (Request, error) {
	r, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	return (*DefaultRequest)(r), nil
}

func (c *HeimdallClient) Do(req Request) (Response, error) {
	request := req.(*DefaultRequest)

	r, err := c.Client.Do((*http.Request)(request))
	if err != nil {
		return nil, err
	}

	return (*DefaultResponse)(r), nil
}
