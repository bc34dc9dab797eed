package main

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hash", "hash"},
		{"gen-key", "gen-key"},
		{"gen_key2", "gen_key2"},
		{"bad;rm", "bad_rm"},
		{"new\nline", "new_line"},
	}

	for _, tt := range tests {
		if got := sanitizeCommand(tt.in); got != tt.want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashKeyVerifies(t *testing.T) {
	key := []byte("my-test-api-key")

	hash, err := hashKey(key)
	if err != nil {
		t.Fatalf("hashKey failed: %v", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), key); err != nil {
		t.Errorf("Hash does not verify against the key: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong")); err == nil {
		t.Error("Hash unexpectedly verifies against a wrong key")
	}
}
