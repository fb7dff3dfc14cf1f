package kvault

import (
	"context"
	"strings"
	"time"

	c "github.com/unkn0wn-root/kvault/codec"
	"github.com/unkn0wn-root/kvault/webstorage"
)

// Storage is the backend-agnostic adapter contract. All operations report
// failure through their return value only: false, nil, or a zero Size.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Set stores value under key with the instance default TTL.
	Set(ctx context.Context, key string, value any) bool
	// SetWithTTL stores value with an explicit TTL that overrides the default.
	// ttl <= 0 means the entry never expires.
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) bool
	// Get decodes the value stored under key into dst (a pointer).
	// Returns false when absent, expired, null, or undecodable.
	Get(ctx context.Context, key string, dst any) bool
	Remove(ctx context.Context, key string) bool
	// Clear removes the entries owned by this instance's namespace.
	Clear(ctx context.Context) bool
	// Keys lists logical keys (prefix stripped). Expired entries may be listed
	// until they are read.
	Keys(ctx context.Context) []string
	// Has is Get without a destination; it triggers lazy expiry the same way.
	Has(ctx context.Context, key string) bool
	Size(ctx context.Context) Size
	Close(ctx context.Context) error
}

// Size is a storage usage estimate in KiB. Total is a constant ceiling for
// the backend family, not a measurement.
type Size struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}

// GetAs is the typed form of Storage.Get.
func GetAs[T any](ctx context.Context, s Storage, key string) (T, bool) {
	var v T
	if !s.Get(ctx, key, &v) {
		var zero T
		return zero, false
	}
	return v, true
}

// Type tags a backend family for the factory.
type Type string

const (
	TypeLocal    Type = "localStorage"
	TypeReactive Type = "vueuse"
	TypeEmbedded Type = "indexedDB"
)

// ParseType accepts the canonical tags and the short names
// "local", "reactive" and "embedded".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "localstorage", "local":
		return TypeLocal, nil
	case "vueuse", "reactive":
		return TypeReactive, nil
	case "indexeddb", "embedded":
		return TypeEmbedded, nil
	default:
		return "", &UnsupportedBackendError{Type: s}
	}
}

// Options configure a storage instance. Zero fields fall back to
// DefaultOptions when the instance is built by the factory.
type Options struct {
	Prefix string        // namespace prepended to every key; "" => DefaultPrefix
	Expire time.Duration // default TTL; 0 => entries never expire by default

	Encryption       bool
	EncryptionKey    string // required when Encryption is true
	Cipher           string // "aes-gcm" (default) or "chacha20-poly1305"
	KDF              string // "sha256" (default, weak), "argon2id", "hkdf-sha256"
	StrictEncryption bool   // refuse insecure fallbacks instead of degrading

	// embedded store identity
	DBName    string
	StoreName string
	Version   int    // schema version, only ever increases; 0 => 1
	Dir       string // directory holding <DBName>.db

	// Area backs the local and reactive adapters. nil => in-memory area.
	Area webstorage.Area

	Codec  c.Codec          // nil => JSON
	Logger Logger           // nil => NopLogger
	Hooks  Hooks            // nil => NopHooks
	Now    func() time.Time // nil => time.Now
}
