package instance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/kvault"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, string(kvault.TypeLocal), cfg.Backend)
	assert.Equal(t, EngineMemory, cfg.Engine)
	assert.Equal(t, kvault.DefaultPrefix, cfg.Prefix)
	assert.Equal(t, kvault.DefaultDBName, cfg.DB.Name)
	assert.Equal(t, kvault.DefaultVersion, cfg.DB.Version)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kvault.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: embedded
expire: 1h
encryption:
  enabled: true
  cipher: chacha20-poly1305
db:
  version: 3
`), 0o644))
	t.Setenv("KVAULT_ENCRYPTION__KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "embedded", cfg.Backend)
	assert.Equal(t, time.Hour, cfg.Expire)
	assert.True(t, cfg.Encryption.Enabled)
	assert.Equal(t, "from-env", cfg.Encryption.Key)
	assert.Equal(t, 3, cfg.DB.Version)
	assert.Equal(t, kvault.DefaultStoreName, cfg.DB.StoreName, "defaults fill the rest")
}

func baseConfig(t *testing.T) Config {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.DB.Dir = t.TempDir()
	return cfg
}

func TestOpenEngines(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	for _, engine := range []string{EngineMemory, EngineBadger, EngineBigCache, EngineRedis} {
		t.Run(engine, func(t *testing.T) {
			cfg := baseConfig(t)
			cfg.Engine = engine
			cfg.Badger.InMemory = true
			cfg.Redis.Addr = mr.Addr()

			inst, err := Open(ctx, cfg, nil, nil)
			require.NoError(t, err)
			defer func() { require.NoError(t, inst.Close(ctx)) }()

			require.True(t, inst.Set(ctx, "user", map[string]any{"id": 1.0}))
			got, ok := kvault.GetAs[map[string]any](ctx, inst, "user")
			require.True(t, ok)
			assert.Equal(t, 1.0, got["id"])
			assert.Equal(t, []string{"user"}, inst.Keys(ctx))
			require.True(t, inst.Clear(ctx))
		})
	}
}

func TestOpenEmbeddedAndPurge(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig(t)
	cfg.Backend = "embedded"
	cfg.Codec = "msgpack"

	inst, err := Open(ctx, cfg, nil, nil)
	require.NoError(t, err)
	defer inst.Close(ctx)
	assert.Equal(t, kvault.TypeEmbedded, inst.Type())

	require.True(t, inst.SetWithTTL(ctx, "gone", 1, time.Millisecond))
	require.True(t, inst.Set(ctx, "kept", 2))
	time.Sleep(5 * time.Millisecond)

	n, err := inst.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"kept"}, inst.Keys(ctx))
}

func TestPurgeOverArea(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig(t)
	cfg.Backend = "reactive"

	inst, err := Open(ctx, cfg, nil, nil)
	require.NoError(t, err)
	defer inst.Close(ctx)

	require.True(t, inst.SetWithTTL(ctx, "gone", 1, time.Millisecond))
	require.True(t, inst.Set(ctx, "kept", 2))
	time.Sleep(5 * time.Millisecond)

	n, err := inst.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()

	cfg := baseConfig(t)
	cfg.Backend = "bogus"
	_, err := Open(ctx, cfg, nil, nil)
	assert.True(t, errors.Is(err, kvault.ErrUnsupportedBackend))

	cfg = baseConfig(t)
	cfg.Engine = "etcd"
	_, err = Open(ctx, cfg, nil, nil)
	assert.True(t, errors.Is(err, kvault.ErrInvalidOptions))

	cfg = baseConfig(t)
	cfg.Encryption.Enabled = true
	_, err = Open(ctx, cfg, nil, nil)
	assert.True(t, errors.Is(err, kvault.ErrEncryptionKeyRequired))

	cfg = baseConfig(t)
	cfg.Codec = "xml"
	_, err = Open(ctx, cfg, nil, nil)
	assert.Error(t, err)
}
