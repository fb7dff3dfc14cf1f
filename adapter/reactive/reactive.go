// Package reactive implements kvault.Storage over the same synchronous area as
// package local, with plain calls in place of change-tracked state. It also
// reads values written by older clients that stored them unwrapped: a bare
// codec value, or a plain string that is not valid codec data at all.
package reactive

import (
	"context"
	"errors"
	"time"

	"github.com/unkn0wn-root/kvault"
	c "github.com/unkn0wn-root/kvault/codec"
	"github.com/unkn0wn-root/kvault/internal/payload"
	"github.com/unkn0wn-root/kvault/internal/util"
	"github.com/unkn0wn-root/kvault/webstorage"
)

const TotalKiB = 5120

type Storage struct {
	area    webstorage.Area
	ownArea bool
	prefix  string
	expire  time.Duration
	ser     *payload.Serializer
	log     kvault.Logger
	hooks   kvault.Hooks
	now     func() time.Time
}

var _ kvault.Storage = (*Storage)(nil)

func New(opts kvault.Options) (*Storage, error) {
	o := opts.WithDefaults()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	ser, err := payload.FromOptions(o)
	if err != nil {
		return nil, err
	}
	s := &Storage{
		area:   o.Area,
		prefix: o.Prefix,
		expire: o.Expire,
		ser:    ser,
		log:    o.Logger,
		hooks:  o.Hooks,
		now:    o.Now,
	}
	if s.area == nil {
		s.area = webstorage.NewMemory(webstorage.DefaultQuota)
		s.ownArea = true
	}
	return s, nil
}

func (s *Storage) Set(ctx context.Context, key string, value any) bool {
	return s.write(ctx, key, value, s.expire)
}

func (s *Storage) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) bool {
	return s.write(ctx, key, value, ttl)
}

func (s *Storage) write(ctx context.Context, key string, value any, ttl time.Duration) bool {
	sk := s.prefix + key
	b, err := s.ser.Encode(value, kvault.ExpireAt(s.now(), ttl))
	if err != nil {
		s.log.Error("reactive: encode failed", kvault.Fields{"key": sk, "err": err})
		return false
	}
	if err := s.area.SetItem(ctx, sk, b); err != nil {
		s.log.Error("reactive: set failed", kvault.Fields{"key": sk, "err": err})
		s.hooks.BackendError("set", sk, err)
		return false
	}
	return true
}

func (s *Storage) Get(ctx context.Context, key string, dst any) bool {
	sk := s.prefix + key
	b, ok, err := s.area.GetItem(ctx, sk)
	if err != nil {
		s.log.Error("reactive: get failed", kvault.Fields{"key": sk, "err": err})
		s.hooks.BackendError("get", sk, err)
		return false
	}
	if !ok || len(b) == 0 {
		return false
	}
	pt, err := s.ser.Open(b)
	if err != nil {
		s.corrupt(sk, payload.Reason(err), err)
		return false
	}
	it, err := s.ser.Codec().DecodeItem(pt)
	if err != nil {
		return s.legacy(sk, pt, dst)
	}
	if kvault.Expired(it.ExpireAt, s.now()) {
		s.hooks.ExpiredOnRead(sk)
		s.Remove(ctx, key)
		return false
	}
	if s.ser.IsNull(it.Value) {
		return false
	}
	if err := s.ser.Value(it.Value, dst); err != nil {
		s.corrupt(sk, payload.ReasonValueDecode, err)
		return false
	}
	return true
}

// legacy reads an unwrapped value. Such values carry no deadline.
func (s *Storage) legacy(sk string, raw []byte, dst any) bool {
	codec := s.ser.Codec()
	var probe any
	if err := codec.Unmarshal(raw, &probe); err == nil {
		if probe == nil {
			return false
		}
		if dst == nil {
			return true
		}
		if err := codec.Unmarshal(raw, dst); err == nil {
			s.log.Debug("reactive: read unwrapped value", kvault.Fields{"key": sk})
			return true
		}
	}
	switch d := dst.(type) {
	case nil:
		return true
	case *string:
		*d = string(raw)
		return true
	case *any:
		*d = string(raw)
		return true
	}
	s.corrupt(sk, payload.ReasonItemDecode, errors.Join(c.ErrNotItem, errors.New("legacy value does not fit destination")))
	return false
}

func (s *Storage) corrupt(sk, reason string, err error) {
	s.log.Warn("reactive: unreadable entry", kvault.Fields{"key": sk, "reason": reason, "err": err})
	s.hooks.CorruptOnRead(sk, reason)
}

func (s *Storage) Has(ctx context.Context, key string) bool {
	return s.Get(ctx, key, nil)
}

func (s *Storage) Remove(ctx context.Context, key string) bool {
	sk := s.prefix + key
	if err := s.area.RemoveItem(ctx, sk); err != nil {
		s.log.Error("reactive: remove failed", kvault.Fields{"key": sk, "err": err})
		s.hooks.BackendError("remove", sk, err)
		return false
	}
	return true
}

// Clear removes this namespace one logical key at a time through Remove.
// A failed key does not stop the rest; the result is false if any failed.
func (s *Storage) Clear(ctx context.Context) bool {
	keys, err := s.keys(ctx)
	if err != nil {
		s.hooks.BackendError("clear", s.prefix, err)
		return false
	}
	ok := true
	for _, k := range keys {
		if !s.Remove(ctx, k) {
			ok = false
		}
	}
	return ok
}

func (s *Storage) Keys(ctx context.Context) []string {
	keys, err := s.keys(ctx)
	if err != nil {
		s.hooks.BackendError("keys", s.prefix, err)
		return []string{}
	}
	return keys
}

func (s *Storage) keys(ctx context.Context) ([]string, error) {
	keys, err := s.area.Keys(ctx, s.prefix)
	if err != nil {
		s.log.Error("reactive: keys failed", kvault.Fields{"prefix": s.prefix, "err": err})
		return nil, err
	}
	return util.StripPrefix(keys, s.prefix), nil
}

func (s *Storage) Size(ctx context.Context) kvault.Size {
	keys, err := s.area.Keys(ctx, s.prefix)
	if err != nil {
		s.log.Error("reactive: size failed", kvault.Fields{"prefix": s.prefix, "err": err})
		s.hooks.BackendError("size", s.prefix, err)
		return kvault.Size{Total: TotalKiB}
	}
	var used int64
	for _, sk := range keys {
		if b, ok, err := s.area.GetItem(ctx, sk); err == nil && ok {
			used += int64(len(sk) + len(b))
		}
	}
	return kvault.Size{Used: util.KiB(used), Total: TotalKiB}
}

func (s *Storage) Close(context.Context) error {
	if s.ownArea {
		return s.area.Close()
	}
	return nil
}
