// Package rpc holds the wire codec shared by the Connect handlers and clients.
//
// Messages are plain Go structs, so the default protobuf codecs do not apply.
// The codec registers under the "json" name, which Connect clients select
// with the application/json and application/connect+json content types.
package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal rejects unknown fields so typos in requests fail loudly.
func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return fmt.Errorf("decode %T: %w", msg, err)
	}
	return nil
}

// WithCodec installs the JSON codec on a handler or client.
func WithCodec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
