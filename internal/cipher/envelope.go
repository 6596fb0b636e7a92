package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/vaultlink/vaultlink/internal/common"
)

const (
	// NonceSize is the AES-GCM nonce length.
	NonceSize = 12

	// gcmTagSize is the implicit AEAD tag appended to the ciphertext.
	gcmTagSize = 16
)

// Encrypt seals plaintext under the given key with AES-256-GCM and a fresh
// random nonce, returning the envelope "base64(nonce):base64(ciphertext)".
// The AEAD tag is part of the ciphertext.
func Encrypt(plaintext, key []byte) (string, error) {
	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := common.GenerateRandByteArray(NonceSize)
	ct := aead.Seal(nil, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(nonce) + ":" + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt opens an envelope produced by Encrypt. For data written before the
// GCM format it falls back to the legacy nonce-prefixed CBC format, then the
// legacy no-IV CBC format. Every failure path returns ErrIntegrity: the
// function never yields altered plaintext.
func Decrypt(envelope string, key []byte) ([]byte, error) {
	if pt, err := decryptGCM(envelope, key); err == nil {
		return pt, nil
	}
	if pt, err := decryptLegacyCBC(envelope, key); err == nil {
		return pt, nil
	}
	if pt, err := decryptLegacyNoIVCBC(envelope, key); err == nil {
		return pt, nil
	}
	return nil, fmt.Errorf("%w: envelope does not match any known format", common.ErrIntegrity)
}

func decryptGCM(envelope string, key []byte) ([]byte, error) {
	parts := strings.SplitN(envelope, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: missing nonce separator", common.ErrIntegrity)
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: bad nonce encoding", common.ErrIntegrity)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext encoding", common.ErrIntegrity)
	}

	if len(nonce) != NonceSize || len(ct) < gcmTagSize {
		return nil, fmt.Errorf("%w: envelope too short", common.ErrIntegrity)
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrity, err)
	}
	return pt, nil
}

func newGCM(key []byte) (gocipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", common.ErrKey, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKey, err)
	}
	return gocipher.NewGCM(block)
}
