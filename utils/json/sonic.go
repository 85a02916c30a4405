package json

import (
	"io"

	"github.com/bytedance/sonic"
)

// SonicDriver implements Driver on top of bytedance/sonic. Gateway payloads
// are decode-heavy, so bots with many shards may want this over the default
// driver.
type SonicDriver struct {
	API sonic.API
}

// NewSonicDriver returns a sonic-backed driver with sonic's default
// configuration.
func NewSonicDriver() SonicDriver {
	return SonicDriver{API: sonic.ConfigDefault}
}

func (d SonicDriver) Marshal(v interface{}) ([]byte, error) {
	return d.API.Marshal(v)
}

func (d SonicDriver) Unmarshal(data []byte, v interface{}) error {
	return d.API.Unmarshal(data, v)
}

func (d SonicDriver) DecodeStream(r io.Reader, v interface{}) error {
	return d.API.NewDecoder(r).Decode(v)
}

func (d SonicDriver) EncodeStream(w io.Writer, v interface{}) error {
	return d.API.NewEncoder(w).Encode(v)
}
