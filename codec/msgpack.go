package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack is a Codec that serializes values using vmihailenco/msgpack/v5.
// The zero value is ready to use.
//
// Msgpack is compact and fast; be mindful of struct tag differences vs JSON.
// Use `msgpack:"fieldName"` tags if you need explicit control.
type Msgpack struct{}

var _ Codec = Msgpack{}

type msgpackItem struct {
	Value  msgpack.RawMessage `msgpack:"value"`
	Expire int64              `msgpack:"expire,omitempty"`
}

func (Msgpack) Name() string                    { return "msgpack" }
func (Msgpack) Marshal(v any) ([]byte, error)   { return msgpack.Marshal(v) }
func (Msgpack) Unmarshal(b []byte, v any) error { return msgpack.Unmarshal(b, v) }

func (Msgpack) EncodeItem(it Item) ([]byte, error) {
	return msgpack.Marshal(msgpackItem{Value: it.Value, Expire: it.ExpireAt})
}

func (Msgpack) DecodeItem(b []byte) (Item, error) {
	var mi msgpackItem
	if err := msgpack.Unmarshal(b, &mi); err != nil {
		return Item{}, err
	}
	if mi.Value == nil {
		return Item{}, ErrNotItem
	}
	return Item{Value: mi.Value, ExpireAt: mi.Expire}, nil
}
