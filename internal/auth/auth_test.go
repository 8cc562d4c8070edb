package auth

import (
	"strings"
	"testing"
)

func TestGenerateAPIKeyFormat(t *testing.T) {
	displayKey, prefix, hash, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey() error = %v", err)
	}

	if !strings.HasPrefix(displayKey, "proxydeck_") {
		t.Errorf("displayKey = %q, want proxydeck_ prefix", displayKey)
	}
	if len(prefix) != prefixLength {
		t.Errorf("len(prefix) = %d, want %d", len(prefix), prefixLength)
	}
	if len(hash) != 32 {
		t.Errorf("len(hash) = %d, want 32 (sha256)", len(hash))
	}

	parsedPrefix, secret, err := ParseAPIKey(displayKey)
	if err != nil {
		t.Fatalf("ParseAPIKey() error = %v", err)
	}
	if parsedPrefix != prefix {
		t.Errorf("parsed prefix = %q, want %q", parsedPrefix, prefix)
	}
	if secret == "" {
		t.Error("parsed secret is empty")
	}
}

func TestGenerateAPIKeyUnique(t *testing.T) {
	k1, _, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey() error = %v", err)
	}
	k2, _, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey() error = %v", err)
	}
	if k1 == k2 {
		t.Error("two generated keys are identical")
	}
}

func TestVerifyAPIKey(t *testing.T) {
	displayKey, _, hash, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey() error = %v", err)
	}

	if !VerifyAPIKey(displayKey, hash) {
		t.Error("VerifyAPIKey() = false for valid key")
	}
	if VerifyAPIKey(displayKey+"x", hash) {
		t.Error("VerifyAPIKey() = true for tampered secret")
	}
	if VerifyAPIKey("proxydeck_aaaaaaaaaa_wrong", hash) {
		t.Error("VerifyAPIKey() = true for wrong key")
	}
	if VerifyAPIKey("garbage", hash) {
		t.Error("VerifyAPIKey() = true for malformed key")
	}
}

func TestParseAPIKeyRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"wrong service", "other_aaaaaaaaaa_secret"},
		{"missing secret", "proxydeck_aaaaaaaaaa"},
		{"short prefix", "proxydeck_abc_secret"},
		{"uppercase prefix", "proxydeck_AAAAAAAAAA_secret"},
		{"no separators", "proxydeck"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := ParseAPIKey(tc.key); err == nil {
				t.Errorf("ParseAPIKey(%q) error = nil, want ErrInvalidKeyFormat", tc.key)
			}
		})
	}
}

func TestHashSecretDeterministic(t *testing.T) {
	a := HashSecret("secret")
	b := HashSecret("secret")
	if string(a) != string(b) {
		t.Error("HashSecret() not deterministic")
	}
	if string(a) == string(HashSecret("other")) {
		t.Error("different secrets share a hash")
	}
}

func TestRandomToken(t *testing.T) {
	tok, err := randomToken(secretLength)
	if err != nil {
		t.Fatalf("randomToken() error = %v", err)
	}
	if len(tok) != secretLength {
		t.Errorf("len(token) = %d, want %d", len(tok), secretLength)
	}
	for _, c := range tok {
		if !strings.ContainsRune(keyAlphabet, c) {
			t.Errorf("token contains %q outside the alphabet", c)
		}
	}

	if tok2, _ := randomToken(secretLength); tok == tok2 {
		t.Error("two tokens are identical")
	}
}
