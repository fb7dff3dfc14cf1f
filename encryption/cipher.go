package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher identifies the AEAD algorithm.
type Cipher string

const (
	CipherAESGCM   Cipher = "aes-gcm"
	CipherChaCha20 Cipher = "chacha20-poly1305"
)

var ErrUnknownCipher = errors.New("encryption: unknown cipher")

// nonceSize is fixed at 96 bits for both ciphers.
const nonceSize = 12

func newAEAD(c Cipher, key []byte) (cipher.AEAD, error) {
	switch c {
	case CipherAESGCM, "":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case CipherChaCha20:
		return chacha20poly1305.New(key)
	default:
		return nil, ErrUnknownCipher
	}
}

func validCipher(c Cipher) bool {
	switch c {
	case CipherAESGCM, CipherChaCha20, "":
		return true
	}
	return false
}
