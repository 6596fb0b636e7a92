package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"encoding/base64"
	"fmt"

	"github.com/vaultlink/vaultlink/internal/common"
)

// Legacy envelope formats, accepted on read only.
//
// Before the GCM envelope the engine stored a single base64 blob of
// iv||ciphertext in AES-CBC with PKCS#7 padding; the oldest format omitted
// the IV and encrypted with an all-zero IV. Both must stay readable so data
// written by older versions survives a format upgrade.

// decryptLegacyCBC handles the nonce-prefixed CBC format: base64(iv||ct).
func decryptLegacyCBC(envelope string, key []byte) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64", common.ErrIntegrity)
	}
	if len(blob) < 2*aes.BlockSize || (len(blob)-aes.BlockSize)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad legacy envelope length", common.ErrIntegrity)
	}
	return decryptCBC(blob[:aes.BlockSize], blob[aes.BlockSize:], key)
}

// decryptLegacyNoIVCBC handles the oldest format: base64(ct) with a zero IV.
func decryptLegacyNoIVCBC(envelope string, key []byte) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64", common.ErrIntegrity)
	}
	if len(blob) < aes.BlockSize || len(blob)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad legacy envelope length", common.ErrIntegrity)
	}
	iv := make([]byte, aes.BlockSize)
	return decryptCBC(iv, blob, key)
}

func decryptCBC(iv, ct, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", common.ErrKey, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKey, err)
	}

	pt := make([]byte, len(ct))
	gocipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)

	return pkcs7Unpad(pt)
}

// pkcs7Unpad strips PKCS#7 padding, rejecting malformed padding so corrupted
// legacy blobs fail instead of yielding garbage.
func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", common.ErrIntegrity)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", common.ErrIntegrity)
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, fmt.Errorf("%w: bad padding", common.ErrIntegrity)
		}
	}
	return b[:len(b)-n], nil
}
