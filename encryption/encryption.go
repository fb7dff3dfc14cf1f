// Package encryption seals serialized items into self-describing envelopes:
//
//	{"iv": hex(12B), "salt": hex(16B), "content": base64(ciphertext||tag)}
//
// Each call draws a fresh salt and IV. The key is derived from the password
// and the salt text; the default derivation (single SHA-256 pass) keeps
// envelopes readable by existing browser clients but is weak against
// offline guessing. Prefer KDFArgon2id where compatibility is not needed.
//
// Unless Strict is set, failures degrade loudly instead of failing:
//   - secure random source unavailable: math/rand bytes (insecure_random)
//   - AEAD unavailable on encrypt: base64 of the percent-encoded plaintext (plaintext_encode)
//   - envelope unreadable on decrypt: base64 decode of the input (plaintext_decode)
//
// Every fallback is logged at Warn/Error and reported through OnFallback.
package encryption

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	mrand "math/rand"

	"github.com/unkn0wn-root/kvault"
)

const saltSize = 16

var (
	ErrKeyRequired = errors.New("encryption: key is required")
	// ErrDecrypt is returned when neither the envelope nor a fallback decode
	// recovers the plaintext (wrong key, tampering, malformed input).
	ErrDecrypt = errors.New("encryption: decrypt failed")
	// ErrEncrypt is returned in strict mode when sealing is impossible.
	ErrEncrypt = errors.New("encryption: encrypt failed")
)

type Options struct {
	Key    string
	Cipher Cipher // "" => aes-gcm
	KDF    KDF    // "" => sha256
	// Strict disables every fallback; failures surface as errors.
	Strict bool
	// Rand is the secure random source. nil => crypto/rand.Reader.
	Rand       io.Reader
	Logger     kvault.Logger       // nil => NopLogger
	OnFallback func(reason string) // optional
}

// Encryptor is safe for concurrent use.
type Encryptor struct {
	key        string
	cipher     Cipher
	kdf        KDF
	strict     bool
	rand       io.Reader
	log        kvault.Logger
	onFallback func(string)

	newAEAD func(Cipher, []byte) (cipher.AEAD, error)
}

type envelope struct {
	IV      string `json:"iv"`
	Salt    string `json:"salt"`
	Content string `json:"content"`
	Alg     Cipher `json:"alg,omitempty"`
	KDF     KDF    `json:"kdf,omitempty"`
}

func New(opts Options) (*Encryptor, error) {
	if opts.Key == "" {
		return nil, ErrKeyRequired
	}
	if !validCipher(opts.Cipher) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, opts.Cipher)
	}
	if !validKDF(opts.KDF) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKDF, opts.KDF)
	}
	e := &Encryptor{
		key:        opts.Key,
		cipher:     opts.Cipher,
		kdf:        opts.KDF,
		strict:     opts.Strict,
		rand:       opts.Rand,
		log:        opts.Logger,
		onFallback: opts.OnFallback,
		newAEAD:    newAEAD,
	}
	if e.rand == nil {
		e.rand = rand.Reader
	}
	if e.log == nil {
		e.log = kvault.NopLogger{}
	}
	if e.onFallback == nil {
		e.onFallback = func(string) {}
	}
	return e, nil
}

// Encrypt seals plaintext into a JSON envelope.
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	saltRaw, err := e.random(saltSize)
	if err != nil {
		return nil, err
	}
	iv, err := e.random(nonceSize)
	if err != nil {
		return nil, err
	}
	salt := hex.EncodeToString(saltRaw)

	key, err := deriveKey(e.kdf, e.key, salt)
	if err != nil {
		return e.encodeFallback(plaintext, err)
	}
	aead, err := e.newAEAD(e.cipher, key)
	if err != nil {
		return e.encodeFallback(plaintext, err)
	}

	env := envelope{
		IV:      hex.EncodeToString(iv),
		Salt:    salt,
		Content: base64.StdEncoding.EncodeToString(aead.Seal(nil, iv, plaintext, nil)),
	}
	if e.cipher != "" && e.cipher != CipherAESGCM {
		env.Alg = e.cipher
	}
	if e.kdf != "" && e.kdf != KDFSHA256 {
		env.KDF = e.kdf
	}
	return json.Marshal(env)
}

// Decrypt opens an envelope produced by Encrypt (or by a browser client using
// the same format). The cipher and KDF recorded in the envelope win over the
// configured ones so envelopes survive a configuration change.
func (e *Encryptor) Decrypt(data []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return e.decodeFallback(data, err)
	}
	if env.Content == "" || env.IV == "" || env.Salt == "" {
		return e.decodeFallback(data, errors.New("missing envelope fields"))
	}
	pt, err := e.open(env)
	if err != nil {
		return e.decodeFallback(data, err)
	}
	return pt, nil
}

func (e *Encryptor) open(env envelope) ([]byte, error) {
	iv, err := hex.DecodeString(env.IV)
	if err != nil {
		return nil, fmt.Errorf("iv: %w", err)
	}
	if len(iv) != nonceSize {
		return nil, fmt.Errorf("iv: want %d bytes, got %d", nonceSize, len(iv))
	}
	ct, err := base64.StdEncoding.DecodeString(env.Content)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	key, err := deriveKey(env.KDF, e.key, env.Salt)
	if err != nil {
		return nil, err
	}
	aead, err := e.newAEAD(env.Alg, key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, iv, ct, nil)
}

func (e *Encryptor) random(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := io.ReadFull(e.rand, b)
	if err == nil {
		return b, nil
	}
	if e.strict {
		return nil, fmt.Errorf("%w: secure random source: %v", ErrEncrypt, err)
	}
	e.log.Warn("secure random source unavailable, using math/rand: envelopes are NOT safe", kvault.Fields{"err": err})
	e.onFallback("insecure_random")
	for i := range b {
		b[i] = byte(mrand.Intn(256))
	}
	return b, nil
}

func (e *Encryptor) encodeFallback(plaintext []byte, cause error) ([]byte, error) {
	if e.strict {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, cause)
	}
	e.log.Error("AEAD unavailable, storing base64 plaintext: NO confidentiality", kvault.Fields{"err": cause})
	e.onFallback("plaintext_encode")
	return []byte(base64.StdEncoding.EncodeToString([]byte(escapeComponent(plaintext)))), nil
}

func (e *Encryptor) decodeFallback(data []byte, cause error) ([]byte, error) {
	if e.strict {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, cause)
	}
	raw, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, cause)
	}
	pt, err := unescapeComponent(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, cause)
	}
	e.log.Warn("decrypt fell back to base64 decode", kvault.Fields{"err": cause})
	e.onFallback("plaintext_decode")
	return []byte(pt), nil
}

// Encrypt seals plaintext with password using the default, compatible
// settings (AES-GCM, SHA-256 derivation, lenient fallbacks).
func Encrypt(plaintext, password string) (string, error) {
	e, err := New(Options{Key: password})
	if err != nil {
		return "", err
	}
	out, err := e.Encrypt([]byte(plaintext))
	return string(out), err
}

// Decrypt is the inverse of Encrypt.
func Decrypt(envelope, password string) (string, error) {
	e, err := New(Options{Key: password})
	if err != nil {
		return "", err
	}
	out, err := e.Decrypt([]byte(envelope))
	return string(out), err
}
