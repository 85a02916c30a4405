package httputil

import (
	"bytes"
	"io"
	"net/http"
	"net/url"

	"github.com/wavebird/concord/utils/httputil/httpdriver"
	"github.com/wavebird/concord/utils/json"
	"github.com/wavebird/concord/utils/json/shape"
)

type RequestOption func(httpdriver.Request) error
type ResponseFunc func(httpdriver.Request, httpdriver.Response) error

// PrependOptions copies the slice and prepends the given options.
func PrependOptions(opts []RequestOption, prepend ...RequestOption) []RequestOption {
	if len(opts) == 0 {
		return prepend
	}

	dst := make([]RequestOption, 0, len(prepend)+len(opts))
	dst = append(dst, prepend...)
	return append(dst, opts...)
}

func JSONRequest(r httpdriver.Request) error {
	r.AddHeader(http.Header{
		"Content-Type": {"application/json"},
	})
	return nil
}

func WithHeaders(headers http.Header) RequestOption {
	return func(r httpdriver.Request) error {
		r.AddHeader(headers)
		return nil
	}
}

func WithContentType(ctype string) RequestOption {
	return func(r httpdriver.Request) error {
		r.AddHeader(http.Header{
			"Content-Type": {ctype},
		})
		return nil
	}
}

// WithSchema adds the query parameters obtained from the schema encoder to
// the URL. GET parameters are always URL-encoded key=value pairs, never
// JSON.
func WithSchema(schema SchemaEncoder, v interface{}) RequestOption {
	return func(r httpdriver.Request) error {
		params, err := schema.Encode(v)
		if err != nil {
			return err
		}

		r.AddQuery(params)
		return nil
	}
}

// WithQuery adds raw URL query values.
func WithQuery(v url.Values) RequestOption {
	return func(r httpdriver.Request) error {
		r.AddQuery(v)
		return nil
	}
}

// WithBody sets a raw request body.
func WithBody(body io.ReadCloser) RequestOption {
	return func(r httpdriver.Request) error {
		r.WithBody(body)
		return nil
	}
}

// WithRawBody sets a pre-encoded JSON body.
func WithRawBody(b []byte) RequestOption {
	return func(r httpdriver.Request) error {
		r.AddHeader(http.Header{
			"Content-Type": {"application/json"},
		})
		r.WithBody(io.NopCloser(bytes.NewReader(b)))
		return nil
	}
}

// WithJSONBody sets the request body to the JSON encoding of v.
func WithJSONBody(v interface{}) RequestOption {
	if v == nil {
		return func(httpdriver.Request) error {
			return nil
		}
	}

	b, err := json.Marshal(v)

	return func(r httpdriver.Request) error {
		if err != nil {
			return err
		}

		r.AddHeader(http.Header{
			"Content-Type": {"application/json"},
		})
		r.WithBody(io.NopCloser(bytes.NewReader(b)))
		return nil
	}
}

// WithShapeBody encodes the input mapping under the given field table and
// uses it as the JSON request body.
func WithShapeBody(input map[string]interface{}, schema shape.Schema) RequestOption {
	b, err := shape.Marshal(input, schema)

	return func(r httpdriver.Request) error {
		if err != nil {
			return err
		}

		r.AddHeader(http.Header{
			"Content-Type": {"application/json"},
		})
		r.WithBody(io.NopCloser(bytes.NewReader(b)))
		return nil
	}
}
