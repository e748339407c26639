package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/argon2"
)

// KDFParams are the Argon2id cost parameters used to turn a password and
// an account's persistent salt into the 32-byte vault key. They must stay
// fixed for the lifetime of an account: the same (password, salt) pair has
// to reproduce the same key on every login.
type KDFParams struct {
	Time        uint32 // iterations
	Memory      uint32 // in KiB
	Parallelism uint8
	KeyLen      uint32
}

func DefaultKDF() KDFParams {
	return KDFParams{Time: 3, Memory: 64 * 1024, Parallelism: 1, KeyLen: 32}
}

const SaltSize = 16

// NewSalt returns a fresh random KDF salt for a new account.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveKey derives the vault key from a plaintext password and the
// account's persistent salt. Deterministic for a given (password, salt)
// pair. The caller owns the returned buffer and must Zero it when done.
func DeriveKey(password, salt []byte, p KDFParams) []byte {
	return argon2.IDKey(password, salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
}
