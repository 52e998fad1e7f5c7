package auth

import (
	"strings"
	"testing"
)

func testParams() *Argon2Params {
	// Low-cost parameters keep the test fast
	return NewParams(8*1024, 1, 1)
}

func TestHashAndVerifyPassword(t *testing.T) {
	params := testParams()

	hash, err := HashPassword("correct horse battery staple", params)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	match, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !match {
		t.Fatal("expected password to verify")
	}

	match, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if match {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestHashPasswordProducesUniqueHashes(t *testing.T) {
	params := testParams()

	h1, err := HashPassword("same input", params)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("same input", params)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatal("expected distinct hashes for the same input")
	}
}

func TestSaltedHashingIsSaltSensitive(t *testing.T) {
	params := testParams()

	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	if salt1 == salt2 {
		t.Fatal("expected distinct salts")
	}
	if len(salt1) != 32 {
		t.Fatalf("unexpected salt length: %d", len(salt1))
	}

	hash, err := HashPassword("password123"+salt1, params)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	// Same password with a different salt must not verify
	match, err := VerifyPassword("password123"+salt2, hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if match {
		t.Fatal("expected mismatched salt to fail verification")
	}

	match, err = VerifyPassword("password123"+salt1, hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !match {
		t.Fatal("expected matching salt to verify")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("anything", "not-an-encoded-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
	if _, err := VerifyPassword("anything", "$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA"); err == nil {
		t.Fatal("expected error for unsupported variant")
	}
}

func TestGenerateSessionToken(t *testing.T) {
	t1, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	t2, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if t1 == t2 {
		t.Fatal("expected unique tokens")
	}
	// 32 random bytes, base64 url-encoded without padding
	if len(t1) != 43 {
		t.Fatalf("unexpected token length: %d", len(t1))
	}
}

func TestHashTokenIsDeterministic(t *testing.T) {
	h1 := HashToken("some-token")
	h2 := HashToken("some-token")
	if h1 != h2 {
		t.Fatal("expected deterministic token hash")
	}
	if h1 == "some-token" {
		t.Fatal("hash must differ from plaintext")
	}
	if len(h1) != 64 {
		t.Fatalf("unexpected hash length: %d", len(h1))
	}
	if HashToken("other-token") == h1 {
		t.Fatal("different tokens must hash differently")
	}
}
