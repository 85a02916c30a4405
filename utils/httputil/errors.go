package httputil

import (
	"fmt"
	"strconv"

	"github.com/wavebird/concord/utils/json"
)

// JSONError is returned if the response carries an invalid JSON body. The
// request itself succeeded.
type JSONError struct {
	Err error
}

func (j JSONError) Error() string {
	return "JSON decoding failed: " + j.Err.Error()
}

func (j JSONError) Unwrap() error {
	return j.Err
}

// RequestError is returned if the request fails to be done, i.e. the server
// is never reached.
type RequestError struct {
	Err error
}

func (r RequestError) Error() string {
	return "request failed: " + r.Err.Error()
}

func (r RequestError) Unwrap() error {
	return r.Err
}

// HTTPError is returned if the server responds with a status outside the
// 2xx range. Body holds the raw response.
type HTTPError struct {
	Status int    `json:"-"`
	Body   []byte `json:"-"`

	Code    uint     `json:"code"`
	Errors  json.Raw `json:"errors,omitempty"`
	Message string   `json:"message,omitempty"`
}

func (err HTTPError) Error() string {
	switch {
	case err.Errors != nil:
		return fmt.Sprintf("Discord %d error: %s: %s", err.Status, err.Message, err.Errors)

	case err.Message != "":
		return fmt.Sprintf("Discord %d error: %s", err.Status, err.Message)

	case err.Code > 0:
		return fmt.Sprintf("Discord returned status %d error code %d",
			err.Status, err.Code)

	case len(err.Body) > 0:
		return fmt.Sprintf("Discord returned status %d body %s",
			err.Status, string(err.Body))

	default:
		return "Discord returned status " + strconv.Itoa(err.Status)
	}
}
