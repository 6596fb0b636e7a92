package cipher

import (
	"fmt"

	"github.com/vaultlink/vaultlink/internal/common"
)

// Session carries a derived vault key for the duration of a batch operation.
// Derivation is expensive, so callers open a session once, run their batch,
// and Close it; Close wipes the key synchronously. Sessions replace any
// process-wide "current key" state: the key lives exactly as long as the
// session value.
type Session struct {
	vaultID string
	key     []byte
	closed  bool
}

// NewSession derives the vault key from the master password and salt and
// returns a ready session. The caller must Close it when the batch is done.
func NewSession(vaultID string, master, salt []byte) (*Session, error) {
	key, err := DeriveKey(master, salt)
	if err != nil {
		return nil, err
	}
	return &Session{vaultID: vaultID, key: key}, nil
}

// VaultID returns the vault this session's key belongs to.
func (s *Session) VaultID() string { return s.vaultID }

// Encrypt seals plaintext under the session key.
func (s *Session) Encrypt(plaintext []byte) (string, error) {
	if s.closed {
		return "", fmt.Errorf("%w: session closed", common.ErrKey)
	}
	return Encrypt(plaintext, s.key)
}

// Decrypt opens an envelope under the session key, including legacy formats.
func (s *Session) Decrypt(envelope string) ([]byte, error) {
	if s.closed {
		return nil, fmt.Errorf("%w: session closed", common.ErrKey)
	}
	return Decrypt(envelope, s.key)
}

// Close wipes the derived key. Safe to call more than once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	common.WipeByteArray(s.key)
	s.key = nil
	s.closed = true
}
