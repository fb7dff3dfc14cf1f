// Package codec serializes stored items. An item wraps a value and its
// absolute expiry deadline; the value is kept as codec-native raw bytes so
// the item can be decoded before the caller's destination type is known.
package codec

import (
	"bytes"
	"errors"
)

// ErrNotItem is returned by DecodeItem when the payload is well-formed for the
// codec but is not an item envelope (no "value" member).
var ErrNotItem = errors.New("codec: payload is not a stored item")

// Item is the stored unit. ExpireAt is an epoch-millisecond deadline; 0 = never.
type Item struct {
	Value    []byte
	ExpireAt int64
}

// Codec encodes values and item envelopes to []byte for storage.
type Codec interface {
	// Name identifies the codec in config and logs.
	Name() string
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes b into v, which must be a non-nil pointer.
	Unmarshal(b []byte, v any) error
	EncodeItem(it Item) ([]byte, error)
	DecodeItem(b []byte) (Item, error)
}

// IsNull reports whether raw is the codec's encoding of a nil value.
func IsNull(c Codec, raw []byte) bool {
	null, err := c.Marshal(nil)
	if err != nil {
		return false
	}
	return bytes.Equal(bytes.TrimSpace(raw), null)
}

// ByName returns the codec registered under name: "json" (or ""), "cbor", "msgpack".
func ByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "cbor":
		return NewCBOR(false)
	case "msgpack":
		return Msgpack{}, nil
	default:
		return nil, errors.New("codec: unknown codec " + name)
	}
}
