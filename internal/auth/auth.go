// Package auth implements API key generation and verification. The key
// resolves to an operator account id; everything below the HTTP layer only
// consumes that id for audit attribution.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"
)

// Key format: proxydeck_<prefix>_<secret>. The prefix is stored in clear for
// lookup; only a digest of the secret is persisted.
const (
	servicePrefix = "proxydeck"
	prefixLength  = 10
	secretLength  = 40
)

const keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var ErrInvalidKeyFormat = errors.New("invalid API key format")

func GenerateAPIKey() (displayKey string, prefix string, hash []byte, err error) {
	prefix, err = randomToken(prefixLength)
	if err != nil {
		return "", "", nil, err
	}
	secret, err := randomToken(secretLength)
	if err != nil {
		return "", "", nil, err
	}

	displayKey = servicePrefix + "_" + prefix + "_" + secret
	hash = HashSecret(secret)
	return displayKey, prefix, hash, nil
}

func HashSecret(secret string) []byte {
	h := sha256.Sum256([]byte(secret))
	return h[:]
}

func VerifyAPIKey(displayKey string, storedHash []byte) bool {
	prefix, secret, err := ParseAPIKey(displayKey)
	if err != nil || prefix == "" {
		return false
	}
	computedHash := HashSecret(secret)
	return subtle.ConstantTimeCompare(computedHash, storedHash) == 1
}

func ParseAPIKey(displayKey string) (prefix string, secret string, err error) {
	if !strings.HasPrefix(displayKey, servicePrefix+"_") {
		return "", "", ErrInvalidKeyFormat
	}
	rest := strings.TrimPrefix(displayKey, servicePrefix+"_")
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		return "", "", ErrInvalidKeyFormat
	}
	if len(parts[0]) != prefixLength {
		return "", "", ErrInvalidKeyFormat
	}
	for _, c := range parts[0] {
		if !isKeyChar(c) {
			return "", "", ErrInvalidKeyFormat
		}
	}
	return parts[0], parts[1], nil
}

// randomToken draws n characters uniformly from keyAlphabet. Rejection
// sampling keeps the distribution unbiased (256 is not a multiple of 36).
func randomToken(n int) (string, error) {
	limit := byte(256 - 256%len(keyAlphabet))
	out := make([]byte, 0, n)
	buf := make([]byte, 1)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		if buf[0] >= limit {
			continue
		}
		out = append(out, keyAlphabet[int(buf[0])%len(keyAlphabet)])
	}
	return string(out), nil
}

func isKeyChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
