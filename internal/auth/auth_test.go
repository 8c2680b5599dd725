package auth

import (
	"testing"
	"time"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "hunter2" {
		t.Fatal("hash must not equal plaintext")
	}
	if !CheckPassword(hash, "hunter2") {
		t.Fatal("expected matching password to verify")
	}
	if CheckPassword(hash, "hunter3") {
		t.Fatal("expected wrong password to fail")
	}

	other, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if other == hash {
		t.Fatal("expected distinct salted hashes for same password")
	}
}

func TestSecretEquals(t *testing.T) {
	t.Parallel()

	if !SecretEquals("topsecret", "topsecret") {
		t.Fatal("expected equal secrets to match")
	}
	if SecretEquals("topsecret", "topsecret2") {
		t.Fatal("expected different secrets to mismatch")
	}
	if SecretEquals("", "x") {
		t.Fatal("expected empty vs non-empty to mismatch")
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("0123456789abcdef0123456789abcdef")
	now := time.Now()

	token, err := NewSessionToken(secret, "sess-1", time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}
	id, err := ParseSessionToken(secret, token)
	if err != nil {
		t.Fatal(err)
	}
	if id != "sess-1" {
		t.Fatalf("expected session id sess-1, got %q", id)
	}
}

func TestSessionTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewSessionToken([]byte("secret-a-secret-a-secret-a-secre"), "sess-1", time.Hour, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseSessionToken([]byte("secret-b-secret-b-secret-b-secre"), token); err == nil {
		t.Fatal("expected token signed with other secret to be rejected")
	}
}

func TestSessionTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	secret := []byte("0123456789abcdef0123456789abcdef")
	token, err := NewSessionToken(secret, "sess-1", time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseSessionToken(secret, token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}
