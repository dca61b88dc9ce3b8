package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secure123!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "Secure123!" {
		t.Fatalf("hash equals plaintext")
	}
	if !CheckPassword(hash, "Secure123!") {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword(hash, "Secure123") {
		t.Fatalf("wrong password accepted")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	// A malformed hash must yield false, never panic.
	if CheckPassword("", "anything") {
		t.Fatalf("empty hash accepted")
	}
	if CheckPassword("not-a-bcrypt-hash", "anything") {
		t.Fatalf("malformed hash accepted")
	}
}
