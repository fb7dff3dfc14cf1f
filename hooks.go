package kvault

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// Adapters call them on hot paths.
type Hooks interface {
	// A read found a past deadline and deleted the entry.
	ExpiredOnRead(storageKey string)

	// A stored payload could not be recovered; the read reported a miss.
	// reason ∈ {"decrypt", "item_decode", "value_decode"}
	CorruptOnRead(storageKey, reason string)

	// The backend failed an operation.
	// op ∈ {"set", "get", "remove", "clear", "keys", "size", "purge"}
	BackendError(op, storageKey string, err error)

	// Encryption degraded to a weaker path.
	// reason ∈ {"insecure_random", "plaintext_encode", "plaintext_decode"}
	EncryptionFallback(reason string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ExpiredOnRead(string)               {}
func (NopHooks) CorruptOnRead(string, string)       {}
func (NopHooks) BackendError(string, string, error) {}
func (NopHooks) EncryptionFallback(string)          {}
