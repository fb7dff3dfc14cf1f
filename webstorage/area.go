// Package webstorage defines Area, a flat synchronous key/value store shaped
// after the browser Web Storage API, and an in-memory implementation with a
// browser-like quota. Subpackages provide persistent (badger), bounded
// (bigcache) and shared (redis) areas.
//
// Implementations MUST be byte-for-byte transparent and safe for concurrent use.
package webstorage

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExceeded is returned by SetItem when the write would exceed the area quota.
	ErrQuotaExceeded = errors.New("webstorage: quota exceeded")
	ErrClosed        = errors.New("webstorage: area closed")
)

// Area is an origin-scoped flat key/value namespace.
type Area interface {
	// GetItem returns (value, true, nil) on hit; (nil, false, nil) on miss.
	GetItem(ctx context.Context, key string) ([]byte, bool, error)
	SetItem(ctx context.Context, key string, value []byte) error
	// RemoveItem deletes key; missing keys are not an error.
	RemoveItem(ctx context.Context, key string) error
	// Keys lists every key starting with prefix ("" lists all). Order is unspecified.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// DefaultQuota matches the 5 MiB most browsers grant an origin.
const DefaultQuota = 5 << 20
