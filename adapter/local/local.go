// Package local implements kvault.Storage over a synchronous webstorage.Area,
// the way a browser app uses localStorage: one flat namespace, entries
// wrapped as {value, expire} items under prefix+key.
package local

import (
	"context"
	"time"

	"github.com/unkn0wn-root/kvault"
	"github.com/unkn0wn-root/kvault/internal/payload"
	"github.com/unkn0wn-root/kvault/internal/util"
	"github.com/unkn0wn-root/kvault/webstorage"
)

// TotalKiB is the reported capacity, the common browser origin quota.
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

// New merges opts over kvault.DefaultOptions. Without opts.Area the storage
// gets a private in-memory area with the browser quota.
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

func (s *Storage) key(k string) string { return s.prefix + k }

func (s *Storage) Set(ctx context.Context, key string, value any) bool {
	return s.set(ctx, key, value, s.expire)
}

func (s *Storage) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) bool {
	return s.set(ctx, key, value, ttl)
}

func (s *Storage) set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	sk := s.key(key)
	b, err := s.ser.Encode(value, kvault.ExpireAt(s.now(), ttl))
	if err != nil {
		s.log.Error("local: encode failed", kvault.Fields{"key": sk, "err": err})
		return false
	}
	if err := s.area.SetItem(ctx, sk, b); err != nil {
		s.log.Error("local: set failed", kvault.Fields{"key": sk, "err": err})
		s.hooks.BackendError("set", sk, err)
		return false
	}
	return true
}

func (s *Storage) Get(ctx context.Context, key string, dst any) bool {
	sk := s.key(key)
	b, ok, err := s.area.GetItem(ctx, sk)
	if err != nil {
		s.log.Error("local: get failed", kvault.Fields{"key": sk, "err": err})
		s.hooks.BackendError("get", sk, err)
		return false
	}
	if !ok {
		return false
	}
	it, err := s.ser.Decode(b)
	if err != nil {
		s.corrupt(sk, err)
		return false
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
		s.corrupt(sk, err)
		return false
	}
	return true
}

// corrupt reports an unreadable entry. The entry is left in place: a wrong
// key or codec must not destroy data.
func (s *Storage) corrupt(sk string, err error) {
	s.log.Warn("local: unreadable entry", kvault.Fields{"key": sk, "err": err})
	s.hooks.CorruptOnRead(sk, payload.Reason(err))
}

func (s *Storage) Has(ctx context.Context, key string) bool {
	return s.Get(ctx, key, nil)
}

func (s *Storage) Remove(ctx context.Context, key string) bool {
	sk := s.key(key)
	if err := s.area.RemoveItem(ctx, sk); err != nil {
		s.log.Error("local: remove failed", kvault.Fields{"key": sk, "err": err})
		s.hooks.BackendError("remove", sk, err)
		return false
	}
	return true
}

// Clear removes every entry under the prefix; other namespaces in the same
// area are untouched.
func (s *Storage) Clear(ctx context.Context) bool {
	keys, err := s.area.Keys(ctx, s.prefix)
	if err != nil {
		s.log.Error("local: clear failed", kvault.Fields{"prefix": s.prefix, "err": err})
		s.hooks.BackendError("clear", s.prefix, err)
		return false
	}
	ok := true
	for _, sk := range keys {
		if err := s.area.RemoveItem(ctx, sk); err != nil {
			s.log.Error("local: clear failed", kvault.Fields{"key": sk, "err": err})
			s.hooks.BackendError("clear", sk, err)
			ok = false
		}
	}
	return ok
}

func (s *Storage) Keys(ctx context.Context) []string {
	keys, err := s.area.Keys(ctx, s.prefix)
	if err != nil {
		s.log.Error("local: keys failed", kvault.Fields{"prefix": s.prefix, "err": err})
		s.hooks.BackendError("keys", s.prefix, err)
		return []string{}
	}
	return util.StripPrefix(keys, s.prefix)
}

// Size sums len(key)+len(value) over the entries under the prefix.
func (s *Storage) Size(ctx context.Context) kvault.Size {
	keys, err := s.area.Keys(ctx, s.prefix)
	if err != nil {
		s.log.Error("local: size failed", kvault.Fields{"prefix": s.prefix, "err": err})
		s.hooks.BackendError("size", s.prefix, err)
		return kvault.Size{Total: TotalKiB}
	}
	var used int64
	for _, sk := range keys {
		b, ok, err := s.area.GetItem(ctx, sk)
		if err != nil || !ok {
			continue
		}
		used += int64(len(sk) + len(b))
	}
	return kvault.Size{Used: util.KiB(used), Total: TotalKiB}
}

// Close closes the area only when this storage created it.
func (s *Storage) Close(context.Context) error {
	if s.ownArea {
		return s.area.Close()
	}
	return nil
}
