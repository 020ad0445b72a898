// Package mwcodec provides the JSON codec used by every Connect handler.
package mwcodec

import (
	"connectrpc.com/connect"
	"github.com/goccy/go-json"
)

// jsonCodec marshals plain Go message structs. It replaces Connect's
// protojson codec, which only accepts generated proto messages.
type jsonCodec struct {
	name string
}

var _ connect.Codec = (*jsonCodec)(nil)

func (c *jsonCodec) Name() string {
	return c.name
}

func (c *jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

func NewJSONCodec() connect.Codec {
	return &jsonCodec{name: "json"}
}

func WithJSONCodec() connect.HandlerOption {
	return connect.WithCodec(NewJSONCodec())
}
