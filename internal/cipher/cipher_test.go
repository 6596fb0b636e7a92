package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vaultlink/vaultlink/internal/common"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return key
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey()
	plaintexts := [][]byte{
		[]byte("hunter2"),
		[]byte(""),
		[]byte("longer plaintext with spaces and unicode: пароль"),
	}

	for _, pt := range plaintexts {
		env, err := Encrypt(pt, key)
		require.NoError(t, err)

		got, err := Decrypt(env, key)
		require.NoError(t, err)
		require.Equal(t, pt, got)
	}
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	key := testKey()
	a, err := Encrypt([]byte("same"), key)
	require.NoError(t, err)
	b, err := Encrypt([]byte("same"), key)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDecrypt_TamperedEnvelopeFails(t *testing.T) {
	key := testKey()
	env, err := Encrypt([]byte("account password"), key)
	require.NoError(t, err)

	// Flip one bit inside the ciphertext portion.
	raw := []byte(env)
	sep := 0
	for i, c := range raw {
		if c == ':' {
			sep = i
			break
		}
	}
	ct, err := base64.StdEncoding.DecodeString(string(raw[sep+1:]))
	require.NoError(t, err)

	for i := range ct {
		mutated := append([]byte(nil), ct...)
		mutated[i] ^= 0x01
		tampered := string(raw[:sep+1]) + base64.StdEncoding.EncodeToString(mutated)

		_, err := Decrypt(tampered, key)
		require.ErrorIs(t, err, common.ErrIntegrity, "bit flip at byte %d must not decrypt", i)
	}
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	env, err := Encrypt([]byte("secret"), testKey())
	require.NoError(t, err)

	other := testKey()
	other[0] ^= 0xFF
	_, err = Decrypt(env, other)
	require.ErrorIs(t, err, common.ErrIntegrity)
}

func TestDecrypt_TooShortEnvelopeRejected(t *testing.T) {
	key := testKey()
	short := base64.StdEncoding.EncodeToString(make([]byte, NonceSize)) + ":" +
		base64.StdEncoding.EncodeToString([]byte("tiny"))

	_, err := Decrypt(short, key)
	require.ErrorIs(t, err, common.ErrIntegrity)

	_, err = Decrypt("not-an-envelope", key)
	require.ErrorIs(t, err, common.ErrIntegrity)
}

// cbcEncrypt reproduces the retired CBC writer so the fallback path can be
// exercised against envelopes older versions actually produced.
func cbcEncrypt(t *testing.T, pt, key, iv []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	pad := aes.BlockSize - len(pt)%aes.BlockSize
	padded := append(append([]byte(nil), pt...), make([]byte, pad)...)
	for i := len(pt); i < len(padded); i++ {
		padded[i] = byte(pad)
	}

	ct := make([]byte, len(padded))
	gocipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)
	return ct
}

func TestDecrypt_LegacyNoncePrefixedCBC(t *testing.T) {
	key := testKey()
	pt := []byte("pre-upgrade password")
	iv := common.GenerateRandByteArray(aes.BlockSize)

	ct := cbcEncrypt(t, pt, key, iv)
	env := base64.StdEncoding.EncodeToString(append(append([]byte(nil), iv...), ct...))

	got, err := Decrypt(env, key)
	require.NoError(t, err)
	require.Equal(t, pt, got)
}

func TestDecrypt_LegacyNoIVCBC(t *testing.T) {
	key := testKey()
	pt := []byte("ancient value")
	iv := make([]byte, aes.BlockSize)

	env := base64.StdEncoding.EncodeToString(cbcEncrypt(t, pt, key, iv))

	got, err := Decrypt(env, key)
	require.NoError(t, err)
	require.Equal(t, pt, got)
}

func TestDeriveKey_MalformedInputs(t *testing.T) {
	_, err := DeriveKey(nil, NewSalt())
	require.ErrorIs(t, err, common.ErrKey)

	_, err = DeriveKey([]byte("master"), []byte("short-salt"))
	require.ErrorIs(t, err, common.ErrKey)
}

func TestDeriveKey_DeterministicPerSalt(t *testing.T) {
	master := []byte("correct horse battery staple")
	salt := NewSalt()

	k1, err := DeriveKey(master, salt)
	require.NoError(t, err)
	k2, err := DeriveKey(master, salt)
	require.NoError(t, err)
	require.Equal(t, k1, k2)

	k3, err := DeriveKey(master, NewSalt())
	require.NoError(t, err)
	require.NotEqual(t, k1, k3)
}

func TestSession_CloseWipesKey(t *testing.T) {
	sess := &Session{vaultID: "v1", key: testKey()}

	env, err := sess.Encrypt([]byte("x"))
	require.NoError(t, err)

	sess.Close()
	sess.Close() // idempotent

	_, err = sess.Encrypt([]byte("y"))
	require.ErrorIs(t, err, common.ErrKey)
	_, err = sess.Decrypt(env)
	require.ErrorIs(t, err, common.ErrKey)
}
