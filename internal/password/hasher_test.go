package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)

	digest, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if digest == "correct horse" || digest == "" {
		t.Fatalf("digest must not be the plaintext")
	}
	if !h.Verify("correct horse", digest) {
		t.Fatalf("expected password to verify")
	}
	if h.Verify("battery staple", digest) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestHashSaltsEveryCall(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)
	a, err := h.Hash("same")
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	b, err := h.Hash("same")
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct digests for the same password")
	}
}

func TestVerifyRejectsEmptyAndMalformedDigest(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)
	if h.Verify("", "") {
		t.Fatalf("empty digest must not verify")
	}
	if h.Verify("secret", "not-a-bcrypt-hash") {
		t.Fatalf("malformed digest must not verify")
	}
}

func TestHashRejectsLongPasswords(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)
	if _, err := h.Hash(strings.Repeat("a", MaxLength+1)); err != ErrTooLong {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestNewBcryptClampsCost(t *testing.T) {
	if got := NewBcrypt(0).cost; got != DefaultCost {
		t.Fatalf("expected default cost, got %d", got)
	}
	if got := NewBcrypt(bcrypt.MaxCost + 1).cost; got != DefaultCost {
		t.Fatalf("expected default cost, got %d", got)
	}
}
