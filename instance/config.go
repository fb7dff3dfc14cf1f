package instance

import (
	"time"

	"github.com/unkn0wn-root/kvault"
	"github.com/unkn0wn-root/kvault/internal/confloader"
)

// Engines back the local and reactive adapters.
const (
	EngineMemory   = "memory"
	EngineBadger   = "badger"
	EngineBigCache = "bigcache"
	EngineRedis    = "redis"
)

// Config describes one storage instance. It is loaded from YAML and
// KVAULT_* environment variables by Load.
type Config struct {
	Backend string        `koanf:"backend"` // local, reactive, embedded or the canonical tags
	Engine  string        `koanf:"engine"`  // area engine for local/reactive
	Prefix  string        `koanf:"prefix"`
	Expire  time.Duration `koanf:"expire"`
	Codec   string        `koanf:"codec"` // json, cbor, msgpack

	Encryption EncryptionConfig `koanf:"encryption"`
	DB         DBConfig         `koanf:"db"`
	Memory     MemoryConfig     `koanf:"memory"`
	Badger     BadgerConfig     `koanf:"badger"`
	BigCache   BigCacheConfig   `koanf:"bigcache"`
	Redis      RedisConfig      `koanf:"redis"`
	Log        LogConfig        `koanf:"log"`
}

type EncryptionConfig struct {
	Enabled bool   `koanf:"enabled"`
	Key     string `koanf:"key"`
	Cipher  string `koanf:"cipher"`
	KDF     string `koanf:"kdf"`
	Strict  bool   `koanf:"strict"`
}

type DBConfig struct {
	Dir       string `koanf:"dir"`
	Name      string `koanf:"name"`
	StoreName string `koanf:"store_name"`
	Version   int    `koanf:"version"`
}

type MemoryConfig struct {
	QuotaBytes int `koanf:"quota_bytes"` // 0 => browser default, -1 => unlimited
}

type BadgerConfig struct {
	Dir        string        `koanf:"dir"`
	InMemory   bool          `koanf:"in_memory"`
	SyncWrites bool          `koanf:"sync_writes"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

type BigCacheConfig struct {
	Shards             int `koanf:"shards"`
	HardMaxCacheSizeMB int `koanf:"hard_max_cache_size_mb"`
}

type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	ScanCount int64  `koanf:"scan_count"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // console, json
}

func defaults() map[string]any {
	return map[string]any{
		"backend": string(kvault.TypeLocal),
		"engine":  EngineMemory,
		"prefix":  kvault.DefaultPrefix,
		"codec":   "json",
		"db": map[string]any{
			"dir":        ".",
			"name":       kvault.DefaultDBName,
			"store_name": kvault.DefaultStoreName,
			"version":    kvault.DefaultVersion,
		},
		"redis": map[string]any{"addr": "localhost:6379"},
		"log":   map[string]any{"level": "info", "format": "console"},
	}
}

// Load reads path (optional) and the environment over the built-in defaults.
func Load(path string) (Config, error) {
	var cfg Config
	l := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithDefaults(defaults()),
	)
	if err := l.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
