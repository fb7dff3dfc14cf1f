// Package payload turns values into stored bytes and back: codec item
// envelope first, then the optional encryption envelope around it.
package payload

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/kvault"
	c "github.com/unkn0wn-root/kvault/codec"
	"github.com/unkn0wn-root/kvault/encryption"
)

// Corruption reasons reported through Hooks.CorruptOnRead.
const (
	ReasonDecrypt     = "decrypt"
	ReasonItemDecode  = "item_decode"
	ReasonValueDecode = "value_decode"
)

// DecodeError tags a failed Decode with its corruption reason.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string { return "payload: " + e.Reason + ": " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// Reason extracts the corruption reason from err, or "" when err is not a *DecodeError.
func Reason(err error) string {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}

// Serializer is safe for concurrent use.
type Serializer struct {
	codec c.Codec
	enc   *encryption.Encryptor // nil => plaintext
}

func New(codec c.Codec, enc *encryption.Encryptor) *Serializer {
	if codec == nil {
		codec = c.JSON{}
	}
	return &Serializer{codec: codec, enc: enc}
}

// FromOptions builds the serializer an adapter needs from merged options.
// Encryption fallbacks are routed to o.Hooks.
func FromOptions(o kvault.Options) (*Serializer, error) {
	if !o.Encryption {
		return New(o.Codec, nil), nil
	}
	if o.EncryptionKey == "" {
		return nil, kvault.ErrEncryptionKeyRequired
	}
	hooks := o.Hooks
	if hooks == nil {
		hooks = kvault.NopHooks{}
	}
	enc, err := encryption.New(encryption.Options{
		Key:        o.EncryptionKey,
		Cipher:     encryption.Cipher(o.Cipher),
		KDF:        encryption.KDF(o.KDF),
		Strict:     o.StrictEncryption,
		Logger:     o.Logger,
		OnFallback: hooks.EncryptionFallback,
	})
	if err != nil {
		return nil, err
	}
	return New(o.Codec, enc), nil
}

func (s *Serializer) Codec() c.Codec  { return s.codec }
func (s *Serializer) Encrypted() bool { return s.enc != nil }

// Encode wraps value with its deadline (0 = never) and seals it when encryption is on.
func (s *Serializer) Encode(value any, expireAt int64) ([]byte, error) {
	raw, err := s.codec.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("payload: marshal value: %w", err)
	}
	b, err := s.codec.EncodeItem(c.Item{Value: raw, ExpireAt: expireAt})
	if err != nil {
		return nil, fmt.Errorf("payload: encode item: %w", err)
	}
	if s.enc == nil {
		return b, nil
	}
	return s.enc.Encrypt(b)
}

// Open reverses the encryption layer only. Without encryption b is returned as is.
func (s *Serializer) Open(b []byte) ([]byte, error) {
	if s.enc == nil {
		return b, nil
	}
	pt, err := s.enc.Decrypt(b)
	if err != nil {
		return nil, &DecodeError{Reason: ReasonDecrypt, Err: err}
	}
	return pt, nil
}

// Decode reverses Encode. Failures are *DecodeError.
func (s *Serializer) Decode(b []byte) (c.Item, error) {
	pt, err := s.Open(b)
	if err != nil {
		return c.Item{}, err
	}
	it, err := s.codec.DecodeItem(pt)
	if err != nil {
		return c.Item{}, &DecodeError{Reason: ReasonItemDecode, Err: err}
	}
	return it, nil
}

// Value decodes a raw item value into dst. A nil dst only checks presence.
func (s *Serializer) Value(raw []byte, dst any) error {
	if dst == nil {
		return nil
	}
	if err := s.codec.Unmarshal(raw, dst); err != nil {
		return &DecodeError{Reason: ReasonValueDecode, Err: err}
	}
	return nil
}

// IsNull reports whether raw encodes a nil value, which reads back as absent.
func (s *Serializer) IsNull(raw []byte) bool {
	return len(raw) == 0 || c.IsNull(s.codec, raw)
}
