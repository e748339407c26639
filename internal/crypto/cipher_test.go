package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func randBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return b
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := randBytes(t, KeySize)
	pt := randBytes(t, 4096)
	ct, nonce, err := Encrypt(key, pt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if len(nonce) != NonceSize {
		t.Fatalf("nonce size = %d, want %d", len(nonce), NonceSize)
	}
	out, err := Decrypt(key, ct, nonce)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(pt, out) {
		t.Fatal("plaintext mismatch")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	key := randBytes(t, KeySize)
	ct, nonce, err := Encrypt(key, []byte("secret-data"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	other := randBytes(t, KeySize)
	if _, err := Decrypt(other, ct, nonce); err != ErrDecryptFailed {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestDecryptCiphertextTamper(t *testing.T) {
	key := randBytes(t, KeySize)
	ct, nonce, err := Encrypt(key, []byte("hello"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	for i := range ct {
		mut := append([]byte(nil), ct...)
		mut[i] ^= 0x01
		if _, err := Decrypt(key, mut, nonce); err == nil {
			t.Fatalf("flip at ciphertext byte %d succeeded", i)
		}
	}
}

func TestDecryptNonceTamper(t *testing.T) {
	key := randBytes(t, KeySize)
	ct, nonce, err := Encrypt(key, []byte("hello"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	for i := range nonce {
		mut := append([]byte(nil), nonce...)
		mut[i] ^= 0x01
		if _, err := Decrypt(key, ct, mut); err == nil {
			t.Fatalf("flip at nonce byte %d succeeded", i)
		}
	}
}

func TestDecryptTruncation(t *testing.T) {
	key := randBytes(t, KeySize)
	ct, nonce, err := Encrypt(key, []byte("hello"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := Decrypt(key, ct[:len(ct)-1], nonce); err == nil {
		t.Fatal("expected failure on truncated ciphertext")
	}
}

func TestEncryptUniqueNonce(t *testing.T) {
	key := randBytes(t, KeySize)
	_, n1, err := Encrypt(key, []byte("data"))
	if err != nil {
		t.Fatalf("encrypt1: %v", err)
	}
	_, n2, err := Encrypt(key, []byte("data"))
	if err != nil {
		t.Fatalf("encrypt2: %v", err)
	}
	if bytes.Equal(n1, n2) {
		t.Fatal("expected distinct nonces")
	}
}

func TestEncryptRejectsShortKey(t *testing.T) {
	if _, _, err := Encrypt(randBytes(t, 16), []byte("x")); err != ErrInvalidKeySize {
		t.Fatalf("expected ErrInvalidKeySize, got %v", err)
	}
}

func FuzzDecryptRejectMutations(f *testing.F) {
	f.Add([]byte("hello"))
	f.Add([]byte(""))
	f.Fuzz(func(t *testing.T, pt []byte) {
		key := randBytes(t, KeySize)
		ct, nonce, err := Encrypt(key, pt)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		if _, err := Decrypt(key, ct, nonce); err != nil {
			t.Fatalf("decrypt baseline: %v", err)
		}
		mut := append([]byte(nil), ct...)
		idx := len(pt) % len(mut)
		mut[idx] ^= 0xFF
		if _, err := Decrypt(key, mut, nonce); err == nil {
			t.Fatalf("mutation at %d succeeded", idx)
		}
	})
}
