// Package factory selects a storage backend by type tag. Unknown tags fail
// closed: no storage is returned.
package factory

import (
	"github.com/unkn0wn-root/kvault"
	"github.com/unkn0wn-root/kvault/adapter/embedded"
	"github.com/unkn0wn-root/kvault/adapter/local"
	"github.com/unkn0wn-root/kvault/adapter/reactive"
)

// New builds a storage of type typ. opts is merged over kvault.DefaultOptions
// with caller fields winning; configuration errors are returned here rather
// than on first use.
func New(typ kvault.Type, opts kvault.Options) (kvault.Storage, error) {
	t, err := kvault.ParseType(string(typ))
	if err != nil {
		return nil, err
	}
	o := opts.WithDefaults()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	switch t {
	case kvault.TypeLocal:
		s, err := local.New(o)
		return wrap(s, err)
	case kvault.TypeReactive:
		s, err := reactive.New(o)
		return wrap(s, err)
	case kvault.TypeEmbedded:
		s, err := embedded.New(o)
		return wrap(s, err)
	}
	return nil, &kvault.UnsupportedBackendError{Type: string(typ)}
}

// wrap keeps a typed nil out of the interface on error.
func wrap[S kvault.Storage](s S, err error) (kvault.Storage, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// MustNew is New for startup wiring; it panics on error.
func MustNew(typ kvault.Type, opts kvault.Options) kvault.Storage {
	s, err := New(typ, opts)
	if err != nil {
		panic(err)
	}
	return s
}
