package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

const (
	// KeySize is the AES-256 key length produced by DeriveKey.
	KeySize = 32
	// NonceSize is the GCM nonce length, random per call.
	NonceSize = 12
)

var (
	ErrInvalidKeySize = errors.New("crypto: key must be 32 bytes")
	// ErrDecryptFailed covers every decryption failure: wrong key, tampered
	// ciphertext, tampered nonce. One error on purpose, so callers cannot
	// build an oracle out of the distinction.
	ErrDecryptFailed = errors.New("crypto: decryption failed")
)

// Encrypt seals plaintext under key with AES-256-GCM (128-bit tag) and a
// fresh random 96-bit nonce. Ciphertext and nonce are returned separately
// and must be stored together.
func Encrypt(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt opens ciphertext produced by Encrypt. It never partially
// succeeds: any tag mismatch yields ErrDecryptFailed.
func Decrypt(key, ciphertext, nonce []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, ErrDecryptFailed
	}
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return pt, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
