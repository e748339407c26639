package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword(DefaultHashParams, "Password123!")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	ok, err := VerifyPassword("Password123!", hash)
	if err != nil {
		t.Fatalf("VerifyPassword error: %v", err)
	}
	if !ok {
		t.Fatalf("expected VerifyPassword to succeed")
	}
}

func TestVerifyPasswordWrongPassword(t *testing.T) {
	hash, err := HashPassword(DefaultHashParams, "Password123!")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	ok, err := VerifyPassword("Password123?", hash)
	if err != nil {
		t.Fatalf("VerifyPassword error: %v", err)
	}
	if ok {
		t.Fatalf("expected verification failure for wrong password")
	}
}

func TestHashPasswordSaltedPerCall(t *testing.T) {
	h1, err := HashPassword(DefaultHashParams, "Password123!")
	if err != nil {
		t.Fatalf("hash1: %v", err)
	}
	h2, err := HashPassword(DefaultHashParams, "Password123!")
	if err != nil {
		t.Fatalf("hash2: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected distinct hashes for the same password")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	ok, err := VerifyPassword("Password123!", "invalid-hash-format")
	if err == nil {
		t.Fatalf("expected error for malformed hash")
	}
	if ok {
		t.Fatalf("expected verification failure for malformed hash")
	}
}
