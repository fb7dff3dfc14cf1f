package encryption

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// KDF identifies how the 256-bit key is derived from password and salt.
type KDF string

const (
	// KDFSHA256 hashes password+salt once. It matches envelopes written by
	// browser clients but has no work factor: do not rely on it against
	// offline guessing of weak passwords.
	KDFSHA256 KDF = "sha256"
	// KDFArgon2id is the memory-hard option (t=2, m=16 MiB, p=2).
	KDFArgon2id KDF = "argon2id"
	// KDFHKDF expands a high-entropy secret; only use it with random keys.
	KDFHKDF KDF = "hkdf-sha256"
)

const (
	keyLen = 32

	argon2Time        = 2
	argon2Memory      = 16 * 1024
	argon2Parallelism = 2
)

var ErrUnknownKDF = errors.New("encryption: unknown key derivation")

var hkdfInfo = []byte("kvault envelope v1")

// deriveKey derives a 32-byte key. salt is the hex string stored in the
// envelope; its text (not the decoded bytes) is what gets mixed in.
func deriveKey(k KDF, password, salt string) ([]byte, error) {
	switch k {
	case KDFSHA256, "":
		sum := sha256.Sum256([]byte(password + salt))
		return sum[:], nil
	case KDFArgon2id:
		return argon2.IDKey([]byte(password), []byte(salt), argon2Time, argon2Memory, argon2Parallelism, keyLen), nil
	case KDFHKDF:
		out := make([]byte, keyLen)
		if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(password), []byte(salt), hkdfInfo), out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, ErrUnknownKDF
	}
}

func validKDF(k KDF) bool {
	switch k {
	case KDFSHA256, KDFArgon2id, KDFHKDF, "":
		return true
	}
	return false
}
