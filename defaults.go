package kvault

import (
	"time"

	c "github.com/unkn0wn-root/kvault/codec"
)

const (
	DefaultPrefix    = "app_"
	DefaultDBName    = "app_db"
	DefaultStoreName = "app_store"
	DefaultVersion   = 1
)

// DefaultOptions returns the built-in defaults the factory merges caller
// options over. The encryption key is empty on purpose: enabling encryption
// without supplying a key is a configuration error.
func DefaultOptions() Options {
	return Options{
		Prefix:    DefaultPrefix,
		DBName:    DefaultDBName,
		StoreName: DefaultStoreName,
		Version:   DefaultVersion,
		Codec:     c.JSON{},
		Logger:    NopLogger{},
		Hooks:     NopHooks{},
		Now:       time.Now,
	}
}

// WithDefaults merges o over DefaultOptions. Non-zero fields of o win.
// Area is left nil; adapters that need one create their own.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	o.Prefix = coalesce(o.Prefix, d.Prefix)
	o.DBName = coalesce(o.DBName, d.DBName)
	o.StoreName = coalesce(o.StoreName, d.StoreName)
	o.Version = coalesce(o.Version, d.Version)
	if o.Codec == nil {
		o.Codec = d.Codec
	}
	o.Logger = coalesce[Logger](o.Logger, d.Logger)
	o.Hooks = coalesce[Hooks](o.Hooks, d.Hooks)
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// Validate reports configuration errors that must fail construction.
func (o Options) Validate() error {
	if o.Encryption && o.EncryptionKey == "" {
		return ErrEncryptionKeyRequired
	}
	if o.Version < 0 {
		return &OptionError{Field: "Version", Reason: "must be >= 1"}
	}
	if o.Expire < 0 {
		return &OptionError{Field: "Expire", Reason: "must not be negative"}
	}
	return nil
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
