package pairing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/vaultlink/vaultlink/internal/common"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// keyPair is an ephemeral X25519 key pair, one per pairing attempt or
// invitation. The private scalar is wiped when the attempt ends.
type keyPair struct {
	private []byte
	public  []byte
}

func newKeyPair() (*keyPair, error) {
	private := common.GenerateRandByteArray(curve25519.ScalarSize)
	public, err := curve25519.X25519(private, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: key generation: %v", common.ErrPairing, err)
	}
	return &keyPair{private: private, public: public}, nil
}

func (k *keyPair) wipe() {
	common.WipeByteArray(k.private)
}

// sessionKey derives the shared 32-byte session key for the paired relation:
// X25519 shared secret expanded with HKDF-SHA256, salted by the invitation
// challenge so every invitation yields a distinct key.
func sessionKey(private, peerPublic, challenge []byte) ([]byte, error) {
	shared, err := curve25519.X25519(private, peerPublic)
	if err != nil {
		return nil, fmt.Errorf("%w: key exchange: %v", common.ErrPairing, err)
	}
	defer common.WipeByteArray(shared)

	out := make([]byte, 32)
	h := hkdf.New(sha256.New, shared, challenge, []byte("vaultlink-session-key"))
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, fmt.Errorf("%w: session key derivation: %v", common.ErrPairing, err)
	}
	return out, nil
}

// tokenKey derives the HMAC key used to sign the success token. Both sides
// know the challenge, so the accepting device can verify the token before it
// ever learns the inviter's public key.
func tokenKey(challenge []byte) []byte {
	out := make([]byte, 32)
	h := hkdf.New(sha256.New, challenge, nil, []byte("vaultlink-success-token"))
	if _, err := io.ReadFull(h, out); err != nil {
		panic(err)
	}
	return out
}

// challengeProof proves knowledge of the invitation challenge and binds the
// proof to the accepting device's identity and ephemeral public key.
func challengeProof(challenge, publicKey []byte, deviceID string) string {
	mac := hmac.New(sha256.New, challenge)
	mac.Write(publicKey)
	mac.Write([]byte(deviceID))
	return hex.EncodeToString(mac.Sum(nil))
}

// proofMatches compares a presented proof in constant time.
func proofMatches(challenge, publicKey []byte, deviceID, presented string) bool {
	expected := challengeProof(challenge, publicKey, deviceID)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
