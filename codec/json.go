package codec

import "encoding/json"

// JSON is the default codec. Items are {"value": <json>, "expire": <ms>},
// with "expire" omitted for entries that never expire.
type JSON struct{}

var _ Codec = JSON{}

type jsonItem struct {
	Value  json.RawMessage `json:"value"`
	Expire int64           `json:"expire,omitempty"`
}

func (JSON) Name() string                    { return "json" }
func (JSON) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (JSON) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

func (JSON) EncodeItem(it Item) ([]byte, error) {
	return json.Marshal(jsonItem{Value: it.Value, Expire: it.ExpireAt})
}

func (JSON) DecodeItem(b []byte) (Item, error) {
	var ji jsonItem
	if err := json.Unmarshal(b, &ji); err != nil {
		return Item{}, err
	}
	if ji.Value == nil {
		return Item{}, ErrNotItem
	}
	return Item{Value: ji.Value, ExpireAt: ji.Expire}, nil
}
