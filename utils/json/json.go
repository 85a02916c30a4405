// Package json wraps a swappable JSON codec behind the Driver interface, so
// the gateway and REST layers can trade encoding/json for a faster codec
// without touching call sites. It also carries the Raw type that the state
// mirror's field-wise merges rely on.
package json

import (
	"encoding/json"
	"io"
)

// Driver is a swappable JSON codec. Implementations must be safe for
// concurrent use.
type Driver interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error

	DecodeStream(r io.Reader, v interface{}) error
	EncodeStream(w io.Writer, v interface{}) error
}

// DefaultDriver is the encoding/json-backed codec.
type DefaultDriver struct{}

func (DefaultDriver) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (DefaultDriver) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (DefaultDriver) DecodeStream(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

func (DefaultDriver) EncodeStream(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}

// Default is the driver behind the package-level helpers. Swap it out before
// any connection is opened; it is read without synchronization afterwards.
var Default Driver = DefaultDriver{}

// Marshal encodes v with the Default driver.
func Marshal(v interface{}) ([]byte, error) {
	return Default.Marshal(v)
}

// Unmarshal decodes data into v with the Default driver.
func Unmarshal(data []byte, v interface{}) error {
	return Default.Unmarshal(data, v)
}

// DecodeStream decodes a single value off r with the Default driver.
func DecodeStream(r io.Reader, v interface{}) error {
	return Default.DecodeStream(r, v)
}

// EncodeStream writes v to w with the Default driver.
func EncodeStream(w io.Writer, v interface{}) error {
	return Default.EncodeStream(w, v)
}
