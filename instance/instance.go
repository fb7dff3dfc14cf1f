// Package instance builds a ready storage from configuration. Applications
// call Open once at startup and pass the *Instance down; there is no
// package-level default.
package instance

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/kvault"
	"github.com/unkn0wn-root/kvault/adapter/embedded"
	"github.com/unkn0wn-root/kvault/codec"
	"github.com/unkn0wn-root/kvault/factory"
	"github.com/unkn0wn-root/kvault/webstorage"
	"github.com/unkn0wn-root/kvault/webstorage/badger"
	"github.com/unkn0wn-root/kvault/webstorage/bigcache"
	"github.com/unkn0wn-root/kvault/webstorage/redis"
)

// Instance is a Storage plus the resources it owns.
type Instance struct {
	kvault.Storage
	typ  kvault.Type
	area webstorage.Area
}

// Open builds the area (local/reactive) and the storage described by cfg.
// logger and hooks may be nil.
func Open(ctx context.Context, cfg Config, logger kvault.Logger, hooks kvault.Hooks) (*Instance, error) {
	typ, err := kvault.ParseType(cfg.Backend)
	if err != nil {
		return nil, err
	}
	c, err := codec.ByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	opts := kvault.Options{
		Prefix:           cfg.Prefix,
		Expire:           cfg.Expire,
		Encryption:       cfg.Encryption.Enabled,
		EncryptionKey:    cfg.Encryption.Key,
		Cipher:           cfg.Encryption.Cipher,
		KDF:              cfg.Encryption.KDF,
		StrictEncryption: cfg.Encryption.Strict,
		DBName:           cfg.DB.Name,
		StoreName:        cfg.DB.StoreName,
		Version:          cfg.DB.Version,
		Dir:              cfg.DB.Dir,
		Codec:            c,
		Logger:           logger,
		Hooks:            hooks,
	}

	var area webstorage.Area
	if typ != kvault.TypeEmbedded {
		area, err = openArea(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		opts.Area = area
	}

	s, err := factory.New(typ, opts)
	if err != nil {
		if area != nil {
			_ = area.Close()
		}
		return nil, err
	}
	if e, ok := s.(*embedded.Storage); ok {
		// surface open and version errors at startup
		if err := e.Open(ctx); err != nil {
			return nil, err
		}
	}
	return &Instance{Storage: s, typ: typ, area: area}, nil
}

func openArea(ctx context.Context, cfg Config, logger kvault.Logger) (webstorage.Area, error) {
	switch cfg.Engine {
	case "", EngineMemory:
		quota := cfg.Memory.QuotaBytes
		switch {
		case quota == 0:
			quota = webstorage.DefaultQuota
		case quota < 0:
			quota = 0
		}
		return webstorage.NewMemory(quota), nil
	case EngineBadger:
		return badger.New(badger.Config{
			Dir:        cfg.Badger.Dir,
			InMemory:   cfg.Badger.InMemory,
			SyncWrites: cfg.Badger.SyncWrites,
			GCInterval: cfg.Badger.GCInterval,
			Logger:     logger,
		})
	case EngineBigCache:
		return bigcache.New(bigcache.Config{
			Shards:             cfg.BigCache.Shards,
			HardMaxCacheSizeMB: cfg.BigCache.HardMaxCacheSizeMB,
		})
	case EngineRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		return redis.New(redis.Config{Client: rdb, CloseClient: true, ScanCount: cfg.Redis.ScanCount})
	default:
		return nil, &kvault.OptionError{Field: "Engine", Reason: fmt.Sprintf("unknown engine %q", cfg.Engine)}
	}
}

// Type is the resolved backend tag.
func (i *Instance) Type() kvault.Type { return i.typ }

// Purge removes expired entries now instead of waiting for reads, and
// returns how many went away.
func (i *Instance) Purge(ctx context.Context) (int, error) {
	if e, ok := i.Storage.(*embedded.Storage); ok {
		n, err := e.Purge(ctx)
		return int(n), err
	}
	before := i.Keys(ctx)
	for _, k := range before {
		// Has deletes past-deadline entries as a side effect.
		i.Has(ctx, k)
	}
	return len(before) - len(i.Keys(ctx)), nil
}

// Close closes the storage, then the area it was built on.
func (i *Instance) Close(ctx context.Context) error {
	err := i.Storage.Close(ctx)
	if i.area != nil {
		err = errors.Join(err, i.area.Close())
	}
	return err
}
