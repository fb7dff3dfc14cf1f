// Package redis provides a shared webstorage.Area on Redis. Several processes
// pointing at the same database see one flat namespace, like browser tabs of
// one origin share localStorage.
package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/kvault/internal/util"
	"github.com/unkn0wn-root/kvault/webstorage"
)

var ErrNilClient = errors.New("redis area: nil client")

type Area struct {
	rdb         goredis.UniversalClient
	closeClient bool
	scanCount   int64
}

var _ webstorage.Area = (*Area)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool  // set true only if this area exclusively owns the client
	ScanCount   int64 // SCAN COUNT hint; 0 => 256
}

func New(cfg Config) (*Area, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	count := cfg.ScanCount
	if count <= 0 {
		count = 256
	}
	return &Area{rdb: cfg.Client, closeClient: cfg.CloseClient, scanCount: count}, nil
}

func (a *Area) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := a.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

// SetItem writes without a Redis TTL; deadlines live inside the stored item.
func (a *Area) SetItem(ctx context.Context, key string, value []byte) error {
	return a.rdb.Set(ctx, key, value, 0).Err()
}

func (a *Area) RemoveItem(ctx context.Context, key string) error {
	return a.rdb.Del(ctx, key).Err()
}

// Keys uses SCAN, so it never blocks the server; keys written during the
// scan may or may not be returned.
func (a *Area) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := a.rdb.Scan(ctx, 0, util.GlobPrefix(prefix), a.scanCount).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying redis client only when this area owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (a *Area) Close() error {
	if a.closeClient {
		if err := a.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
