package engine

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Hasher produces engine-compatible basic-auth credential hashes. The
// plaintext is discarded by callers immediately after hashing.
type Hasher interface {
	HashPassword(ctx context.Context, plaintext string) (string, error)
}

// CommandHasher invokes the engine binary's hash-password subcommand so
// hashes match whatever scheme the engine verifies with. When the binary is
// unavailable it falls back to local bcrypt, which the engine also accepts;
// the fallback is logged but needs no environment guard because it is not a
// weakened scheme.
type CommandHasher struct {
	Binary   string
	Logger   *zap.Logger
	fallback LocalHasher
}

// NewHasher returns the engine-backed hasher, or the local bcrypt hasher
// when no engine binary is configured.
func NewHasher(binary string, logger *zap.Logger) Hasher {
	if binary == "" {
		return LocalHasher{}
	}
	return &CommandHasher{Binary: binary, Logger: logger}
}

func (h *CommandHasher) HashPassword(ctx context.Context, plaintext string) (string, error) {
	cmd := exec.CommandContext(ctx, h.Binary, "hash-password")
	cmd.Stdin = strings.NewReader(plaintext + "\n")
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("engine hash-password failed, using local bcrypt", zap.Error(err))
		}
		return h.fallback.HashPassword(ctx, plaintext)
	}

	hash := strings.TrimSpace(out.String())
	if hash == "" {
		return "", fmt.Errorf("engine hash-password produced empty output")
	}
	return hash, nil
}

// LocalHasher hashes with bcrypt at the default cost.
type LocalHasher struct{}

func (LocalHasher) HashPassword(_ context.Context, plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}
