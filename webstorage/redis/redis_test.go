package redis

import (
	"context"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArea(t *testing.T) (*Area, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	a, err := New(Config{Client: rdb, CloseClient: true, ScanCount: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, mr
}

func TestAreaRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, mr := newTestArea(t)

	require.NoError(t, a.SetItem(ctx, "app_user", []byte(`{"value":{"id":1}}`)))
	assert.Equal(t, mustGet(t, mr, "app_user"), `{"value":{"id":1}}`)
	assert.Zero(t, mr.TTL("app_user"), "area writes carry no redis TTL")

	v, ok, err := a.GetItem(ctx, "app_user")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"value":{"id":1}}`, string(v))

	require.NoError(t, a.RemoveItem(ctx, "app_user"))
	_, ok, err = a.GetItem(ctx, "app_user")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAreaKeysEscapesGlob(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestArea(t)

	for _, k := range []string{"a*_1", "a*_2", "ab_3", "a_4", "b_5"} {
		require.NoError(t, a.SetItem(ctx, k, []byte("x")))
	}

	keys, err := a.Keys(ctx, "a*_")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"a*_1", "a*_2"}, keys)

	all, err := a.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNilClient)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
