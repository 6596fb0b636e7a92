package pairing

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vaultlink/vaultlink/internal/common"
)

// tokenValidity bounds how long a success token remains verifiable. The
// token only matters during the handshake itself, so the window is short.
const tokenValidity = 10 * time.Minute

// successClaims is the payload of the PAIR_SUCCESS token: the inviter's
// identity and its ephemeral public key, which the accepting device needs to
// finish the key exchange.
type successClaims struct {
	DeviceName string `json:"deviceName"`
	PublicKey  string `json:"publicKey"`
	jwt.RegisteredClaims
}

// signSuccessToken issues the token the inviting device returns on a matched
// handshake. It is signed with a key derived from the invitation challenge,
// so only a holder of the original invitation can verify it.
func signSuccessToken(challenge []byte, inviterID, inviterName string, inviterPublic []byte, accepterID string) (string, error) {
	claims := successClaims{
		DeviceName: inviterName,
		PublicKey:  base64.StdEncoding.EncodeToString(inviterPublic),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    inviterID,
			Subject:   accepterID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenValidity)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokenKey(challenge))
}

// verifySuccessToken validates the token against the invitation challenge
// and returns the inviter's identity and public key.
func verifySuccessToken(token string, challenge []byte) (inviterID, inviterName string, inviterPublic []byte, err error) {
	claims := &successClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tokenKey(challenge), nil
	})
	if err != nil || !parsed.Valid {
		return "", "", nil, fmt.Errorf("%w: invalid success token: %v", common.ErrPairing, err)
	}

	pub, err := base64.StdEncoding.DecodeString(claims.PublicKey)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: invalid public key in token", common.ErrPairing)
	}
	return claims.Issuer, claims.DeviceName, pub, nil
}
