// Package bigcache provides a bounded in-memory webstorage.Area on BigCache.
// BigCache evicts by age (LifeWindow) and capacity; entry deadlines stay the
// job of the adapter above, so LifeWindow defaults to a very long window.
package bigcache

import (
	"context"
	"errors"
	"strings"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/kvault/webstorage"
)

const defaultLifeWindow = 10 * 365 * 24 * time.Hour

type Area struct {
	c *bc.BigCache
}

var _ webstorage.Area = (*Area)(nil)

type Config struct {
	LifeWindow         time.Duration // 0 => effectively never
	CleanWindow        time.Duration // 0 => no background cleanup
	Shards             int           // power of two; 0 => bigcache default
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Area, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = defaultLifeWindow
	}
	conf := bc.DefaultConfig(life)
	conf.CleanWindow = cfg.CleanWindow
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	conf.Verbose = false
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Area{c: c}, nil
}

func (a *Area) GetItem(_ context.Context, key string) ([]byte, bool, error) {
	b, err := a.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (a *Area) SetItem(_ context.Context, key string, value []byte) error {
	return a.c.Set(key, value)
}

func (a *Area) RemoveItem(_ context.Context, key string) error {
	if err := a.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Keys walks every shard; cost is linear in the number of entries.
func (a *Area) Keys(_ context.Context, prefix string) ([]string, error) {
	var out []string
	it := a.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			// entry evicted between SetNext and Value
			continue
		}
		if k := e.Key(); strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (a *Area) Close() error {
	return a.c.Close()
}
