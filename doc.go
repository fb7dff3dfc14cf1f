// Package kvault implements a namespaced key/value storage layer with lazy TTL
// expiry and optional authenticated encryption over interchangeable backends.
// Every backend satisfies the same Storage contract; failures never escape an
// operation, they degrade to false/empty results and are logged.
//
// Components:
//   - Storage: the adapter contract (see adapter/local, adapter/reactive, adapter/embedded).
//   - codec.Codec: serializes the stored item {value, expire} (JSON by default).
//   - encryption.Encryptor: seals the whole serialized item into an envelope.
//   - webstorage.Area: synchronous flat key/value backend for local and reactive.
//
// Keys:
//
//	<prefix><key>  - every physical key; the prefix never leaves the adapter
//
// Expiry is lazy: a read that finds a past deadline deletes the entry in a
// second backend call and reports a miss. There is no background sweep.
//
// Usage:
//
//	st, err := factory.New(kvault.TypeLocal, kvault.Options{Prefix: "app_", Expire: time.Hour})
//	ok := st.Set(ctx, "user", User{ID: 1})
//	u, ok := kvault.GetAs[User](ctx, st, "user")
package kvault
