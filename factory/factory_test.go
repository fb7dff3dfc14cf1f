package factory

import (
	"context"
	"errors"
	"testing"

	"github.com/unkn0wn-root/kvault"
	"github.com/unkn0wn-root/kvault/adapter/embedded"
	"github.com/unkn0wn-root/kvault/adapter/local"
	"github.com/unkn0wn-root/kvault/adapter/reactive"
	"github.com/unkn0wn-root/kvault/webstorage"
)

func TestUnknownTypeFailsClosed(t *testing.T) {
	s, err := New("bogus", kvault.Options{})
	if s != nil {
		t.Fatal("no storage may be returned for an unknown type")
	}
	if !errors.Is(err, kvault.ErrUnsupportedBackend) {
		t.Fatalf("got %v", err)
	}
	var ue *kvault.UnsupportedBackendError
	if !errors.As(err, &ue) || ue.Type != "bogus" {
		t.Fatalf("error detail: %v", err)
	}
}

func TestSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		typ  kvault.Type
		want string
	}{
		{kvault.TypeLocal, "local"},
		{"local", "local"},
		{kvault.TypeReactive, "reactive"},
		{kvault.TypeEmbedded, "embedded"},
		{"embedded", "embedded"},
	}
	for _, tc := range cases {
		s, err := New(tc.typ, kvault.Options{Dir: dir})
		if err != nil {
			t.Fatalf("%s: %v", tc.typ, err)
		}
		var got string
		switch s.(type) {
		case *local.Storage:
			got = "local"
		case *reactive.Storage:
			got = "reactive"
		case *embedded.Storage:
			got = "embedded"
		}
		if got != tc.want {
			t.Fatalf("%s: got %s", tc.typ, got)
		}
		_ = s.Close(context.Background())
	}
}

func TestMergesDefaults(t *testing.T) {
	ctx := context.Background()
	area := webstorage.NewMemory(0)
	s, err := New(kvault.TypeLocal, kvault.Options{Area: area})
	if err != nil {
		t.Fatal(err)
	}
	s.Set(ctx, "k", "v")
	if _, ok, _ := area.GetItem(ctx, kvault.DefaultPrefix+"k"); !ok {
		t.Fatal("default prefix not applied")
	}
}

func TestConfigurationErrors(t *testing.T) {
	if _, err := New(kvault.TypeLocal, kvault.Options{Encryption: true}); !errors.Is(err, kvault.ErrEncryptionKeyRequired) {
		t.Fatalf("missing key: %v", err)
	}
	if _, err := New(kvault.TypeEmbedded, kvault.Options{Version: -1}); !errors.Is(err, kvault.ErrInvalidOptions) {
		t.Fatalf("bad version: %v", err)
	}
	if _, err := New(kvault.TypeLocal, kvault.Options{Encryption: true, EncryptionKey: "k", Cipher: "rot13"}); err == nil {
		t.Fatal("unknown cipher must fail construction")
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustNew("bogus", kvault.Options{})
}
