package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Subkey expands the server master secret into a purpose-bound 32-byte
// subkey with HKDF-SHA256. Distinct info strings yield independent keys,
// so one configured secret can serve several signing/encryption roles.
func Subkey(secret []byte, info string) ([]byte, error) {
	stream := hkdf.New(sha256.New, secret, nil, []byte(info))
	key := make([]byte, 32)
	if _, err := io.ReadFull(stream, key); err != nil {
		return nil, err
	}
	return key, nil
}
