package codec

import (
	"errors"
	"strings"
	"testing"
)

type profile struct {
	ID   int    `json:"id" cbor:"id" msgpack:"id"`
	Name string `json:"name" cbor:"name" msgpack:"name"`
}

func allCodecs(t *testing.T) []Codec {
	t.Helper()
	cb, err := NewCBOR(true)
	if err != nil {
		t.Fatalf("NewCBOR: %v", err)
	}
	return []Codec{JSON{}, cb, Msgpack{}}
}

func TestItemRoundTripKeepsValueAndDeadline(t *testing.T) {
	for _, c := range allCodecs(t) {
		t.Run(c.Name(), func(t *testing.T) {
			raw, err := c.Marshal(profile{ID: 1, Name: "a"})
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			b, err := c.EncodeItem(Item{Value: raw, ExpireAt: 1700000000123})
			if err != nil {
				t.Fatalf("EncodeItem: %v", err)
			}
			it, err := c.DecodeItem(b)
			if err != nil {
				t.Fatalf("DecodeItem: %v", err)
			}
			if it.ExpireAt != 1700000000123 {
				t.Fatalf("ExpireAt=%d", it.ExpireAt)
			}
			var got profile
			if err := c.Unmarshal(it.Value, &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if got != (profile{ID: 1, Name: "a"}) {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestJSONItemWireShape(t *testing.T) {
	b, err := JSON{}.EncodeItem(Item{Value: []byte(`{"id":1}`)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"value":{"id":1}}` {
		t.Fatalf("never-expiring item should omit expire, got %s", b)
	}

	// items written by browsers carry a float-free ms deadline
	it, err := JSON{}.DecodeItem([]byte(`{"value":"x","expire":1732000000000}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(it.Value) != `"x"` || it.ExpireAt != 1732000000000 {
		t.Fatalf("unexpected item %+v", it)
	}
}

func TestDecodeItemRejectsBareValues(t *testing.T) {
	if _, err := (JSON{}).DecodeItem([]byte(`{"name":"bare"}`)); !errors.Is(err, ErrNotItem) {
		t.Fatalf("expected ErrNotItem, got %v", err)
	}
	if _, err := (JSON{}).DecodeItem([]byte(`plain text`)); err == nil {
		t.Fatalf("expected syntax error for non-JSON payload")
	}
}

func TestIsNull(t *testing.T) {
	for _, c := range allCodecs(t) {
		null, err := c.Marshal(nil)
		if err != nil {
			t.Fatalf("%s: Marshal(nil): %v", c.Name(), err)
		}
		if !IsNull(c, null) {
			t.Fatalf("%s: IsNull(%x) = false", c.Name(), null)
		}
		v, _ := c.Marshal("null")
		if IsNull(c, v) {
			t.Fatalf("%s: string \"null\" reported as null", c.Name())
		}
	}
}

func TestLimitRejectsOversizedItems(t *testing.T) {
	lc := Limit{Inner: JSON{}, MaxDecode: 16}
	b, _ := lc.EncodeItem(Item{Value: []byte(`"` + strings.Repeat("x", 32) + `"`)})
	if _, err := lc.DecodeItem(b); err == nil {
		t.Fatalf("expected size error for %d bytes", len(b))
	}
	small, _ := lc.EncodeItem(Item{Value: []byte(`1`)})
	if _, err := lc.DecodeItem(small); err != nil {
		t.Fatalf("small payload rejected: %v", err)
	}
}

func TestByName(t *testing.T) {
	for _, n := range []string{"", "json", "cbor", "msgpack"} {
		if _, err := ByName(n); err != nil {
			t.Fatalf("ByName(%q): %v", n, err)
		}
	}
	if _, err := ByName("xml"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}
