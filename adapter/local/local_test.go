package local

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/kvault"
	"github.com/unkn0wn-root/kvault/webstorage"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recHooks struct {
	kvault.NopHooks
	mu      sync.Mutex
	expired []string
	corrupt []string
	backend []string
}

func (h *recHooks) ExpiredOnRead(k string) {
	h.mu.Lock()
	h.expired = append(h.expired, k)
	h.mu.Unlock()
}

func (h *recHooks) CorruptOnRead(k, reason string) {
	h.mu.Lock()
	h.corrupt = append(h.corrupt, k+":"+reason)
	h.mu.Unlock()
}

func (h *recHooks) BackendError(op, k string, _ error) {
	h.mu.Lock()
	h.backend = append(h.backend, op+":"+k)
	h.mu.Unlock()
}

func newStorage(t *testing.T, opts kvault.Options) *Storage {
	t.Helper()
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestSetGetRemove(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t, kvault.Options{})

	if !s.Set(ctx, "user", user{ID: 1, Name: "a"}) {
		t.Fatal("set failed")
	}
	got, ok := kvault.GetAs[user](ctx, s, "user")
	if !ok || got != (user{ID: 1, Name: "a"}) {
		t.Fatalf("got %+v ok=%v", got, ok)
	}
	if !s.Has(ctx, "user") {
		t.Fatal("has: want true")
	}
	if !s.Remove(ctx, "user") {
		t.Fatal("remove failed")
	}
	if _, ok := kvault.GetAs[user](ctx, s, "user"); ok {
		t.Fatal("expected miss after remove")
	}
}

func TestRoundTripValues(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t, kvault.Options{})

	cases := map[string]any{
		"str":   "hello",
		"num":   3.5,
		"bool":  true,
		"slice": []any{"a", 1.0, false},
		"map":   map[string]any{"k": "v", "n": 2.0},
	}
	for k, v := range cases {
		if !s.Set(ctx, k, v) {
			t.Fatalf("set %s failed", k)
		}
		var got any
		if !s.Get(ctx, k, &got) {
			t.Fatalf("get %s missed", k)
		}
		if !reflect.DeepEqual(got, v) {
			t.Fatalf("%s: got %#v want %#v", k, got, v)
		}
	}
}

func TestNullReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t, kvault.Options{})
	if !s.Set(ctx, "n", nil) {
		t.Fatal("set nil failed")
	}
	if s.Has(ctx, "n") {
		t.Fatal("nil value must read as absent")
	}
}

func TestExpiryIsLazy(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.UnixMilli(1_000_000)}
	hooks := &recHooks{}
	area := webstorage.NewMemory(0)
	s := newStorage(t, kvault.Options{Area: area, Now: clk.Now, Hooks: hooks})

	if !s.SetWithTTL(ctx, "k", "v", time.Second) {
		t.Fatal("set failed")
	}
	clk.Advance(time.Second)
	if !s.Has(ctx, "k") {
		t.Fatal("deadline equal to now is still live")
	}
	clk.Advance(time.Millisecond)

	// still physically present until read
	if keys := s.Keys(ctx); !reflect.DeepEqual(keys, []string{"k"}) {
		t.Fatalf("keys before read: %v", keys)
	}
	var v string
	if s.Get(ctx, "k", &v) {
		t.Fatal("expected expired miss")
	}
	if s.Has(ctx, "k") {
		t.Fatal("has after expiry")
	}
	if keys := s.Keys(ctx); len(keys) != 0 {
		t.Fatalf("expired key not removed: %v", keys)
	}
	if len(hooks.expired) != 1 || hooks.expired[0] != "app_k" {
		t.Fatalf("expired hook: %v", hooks.expired)
	}
}

func TestDefaultExpireAndOverride(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.UnixMilli(5_000)}
	s := newStorage(t, kvault.Options{Expire: time.Minute, Now: clk.Now})

	s.Set(ctx, "default", 1)
	s.SetWithTTL(ctx, "forever", 2, 0)
	s.SetWithTTL(ctx, "long", 3, time.Hour)

	clk.Advance(2 * time.Minute)
	if s.Has(ctx, "default") {
		t.Fatal("default TTL not applied")
	}
	if !s.Has(ctx, "forever") || !s.Has(ctx, "long") {
		t.Fatal("explicit TTL must override the default")
	}
}

func TestNamespacesAndClearIsolation(t *testing.T) {
	ctx := context.Background()
	area := webstorage.NewMemory(0)
	a := newStorage(t, kvault.Options{Area: area, Prefix: "X_"})
	b := newStorage(t, kvault.Options{Area: area, Prefix: "Y_"})

	a.Set(ctx, "k", "a")
	b.Set(ctx, "k", "b")
	b.Set(ctx, "other", "b")

	var v string
	if !a.Get(ctx, "k", &v) || v != "a" {
		t.Fatalf("a sees %q", v)
	}
	if a.Has(ctx, "other") {
		t.Fatal("a must not see b's keys")
	}
	if keys := b.Keys(ctx); !reflect.DeepEqual(keys, []string{"k", "other"}) {
		t.Fatalf("b keys: %v", keys)
	}

	if !a.Clear(ctx) {
		t.Fatal("clear failed")
	}
	if len(a.Keys(ctx)) != 0 {
		t.Fatal("a not cleared")
	}
	if len(b.Keys(ctx)) != 2 || area.Len() != 2 {
		t.Fatal("clear on a touched b")
	}
}

func TestEncryptionAtRest(t *testing.T) {
	ctx := context.Background()
	area := webstorage.NewMemory(0)
	s := newStorage(t, kvault.Options{Area: area, Encryption: true, EncryptionKey: "secret"})

	if !s.Set(ctx, "token", "abc123") {
		t.Fatal("set failed")
	}
	raw, ok, _ := area.GetItem(ctx, "app_token")
	if !ok || strings.Contains(string(raw), "abc123") || !strings.Contains(string(raw), `"iv"`) {
		t.Fatalf("stored form is not an envelope: %s", raw)
	}
	got, ok := kvault.GetAs[string](ctx, s, "token")
	if !ok || got != "abc123" {
		t.Fatalf("got %q", got)
	}

	// another key cannot read it and the entry survives
	hooks := &recHooks{}
	other := newStorage(t, kvault.Options{Area: area, Encryption: true, EncryptionKey: "wrong", StrictEncryption: true, Hooks: hooks})
	if other.Has(ctx, "token") {
		t.Fatal("wrong key must not read the value")
	}
	if len(hooks.corrupt) != 1 || hooks.corrupt[0] != "app_token:decrypt" {
		t.Fatalf("corrupt hook: %v", hooks.corrupt)
	}
	if _, ok, _ := area.GetItem(ctx, "app_token"); !ok {
		t.Fatal("unreadable entry must not be deleted")
	}
}

func TestQuotaMakesSetFail(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	s := newStorage(t, kvault.Options{Area: webstorage.NewMemory(64), Hooks: hooks})

	if s.Set(ctx, "big", strings.Repeat("x", 100)) {
		t.Fatal("set over quota must fail")
	}
	if len(hooks.backend) != 1 || hooks.backend[0] != "set:app_big" {
		t.Fatalf("backend hook: %v", hooks.backend)
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	area := webstorage.NewMemory(0)
	hooks := &recHooks{}
	s := newStorage(t, kvault.Options{Area: area, Hooks: hooks})
	_ = area.SetItem(ctx, "app_bad", []byte("{not json"))

	if s.Has(ctx, "bad") {
		t.Fatal("corrupt entry must read as absent")
	}
	if len(hooks.corrupt) != 1 || hooks.corrupt[0] != "app_bad:item_decode" {
		t.Fatalf("corrupt hook: %v", hooks.corrupt)
	}
	var n int
	s.Set(ctx, "str", "x")
	if s.Get(ctx, "str", &n) {
		t.Fatal("type mismatch must be a miss")
	}
}

func TestSize(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t, kvault.Options{})
	if sz := s.Size(ctx); sz.Used != 0 || sz.Total != TotalKiB {
		t.Fatalf("empty size: %+v", sz)
	}
	s.Set(ctx, "blob", strings.Repeat("x", 4096))
	if sz := s.Size(ctx); sz.Used != 4 {
		t.Fatalf("size: %+v", sz)
	}
}

func TestClosedAreaDegrades(t *testing.T) {
	ctx := context.Background()
	s, err := New(kvault.Options{})
	if err != nil {
		t.Fatal(err)
	}
	s.Set(ctx, "k", "v")
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if s.Set(ctx, "k", "v") || s.Has(ctx, "k") || s.Remove(ctx, "k") || s.Clear(ctx) {
		t.Fatal("operations on a closed area must report failure")
	}
	if keys := s.Keys(ctx); len(keys) != 0 {
		t.Fatalf("keys: %v", keys)
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(kvault.Options{Encryption: true}); !errors.Is(err, kvault.ErrEncryptionKeyRequired) {
		t.Fatalf("got %v", err)
	}
	if _, err := New(kvault.Options{Expire: -time.Second}); !errors.Is(err, kvault.ErrInvalidOptions) {
		t.Fatalf("got %v", err)
	}
}
