// Package cipher implements the per-vault encryption engine: Argon2id key
// derivation, AES-256-GCM envelopes with legacy-format fallback on read,
// batch decryption and atomic vault re-encryption.
package cipher

import (
	"fmt"

	"github.com/vaultlink/vaultlink/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the derived key length (AES-256).
	KeySize = 32

	// SaltSize is the per-vault salt length. Salts are generated once and
	// persisted; the derived key never is.
	SaltSize = 32

	// Argon2id parameters. Derivation is deliberately slow and memory-hard;
	// callers must keep it off latency-sensitive paths.
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 1
)

// DeriveKey derives the vault key from the master password and the vault's
// persisted salt. Returns ErrKey when inputs are malformed. The caller owns
// the returned key and should wipe it after use.
func DeriveKey(master []byte, salt []byte) ([]byte, error) {
	if len(master) == 0 {
		return nil, fmt.Errorf("%w: empty master password", common.ErrKey)
	}
	if len(salt) < SaltSize {
		return nil, fmt.Errorf("%w: salt must be at least %d bytes, got %d", common.ErrKey, SaltSize, len(salt))
	}
	return argon2.IDKey(master, salt, argonTime, argonMemory, argonThreads, KeySize), nil
}

// NewSalt generates a fresh vault salt.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}
