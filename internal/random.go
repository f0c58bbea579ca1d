package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// SessionID is the random 128-bit identifier shared by sessions and MFA
// challenges. It travels base64url-encoded and unpadded.
type SessionID [16]byte

const (
	challengeSecretSize   = 32
	challengeTokenRawSize = 16 + challengeSecretSize
)

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) Bytes() []byte {
	return s[:]
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewChallengeSecret returns the random half of an MFA challenge token.
// Only its hash is persisted; the plaintext exists once, inside the token
// handed to the client.
func NewChallengeSecret() ([challengeSecretSize]byte, error) {
	var secret [challengeSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

func HashChallengeSecret(secret [challengeSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// EncodeChallengeToken packs a challenge ID and its secret into one opaque
// client token: 16 ID bytes followed by 32 secret bytes, base64url.
func EncodeChallengeToken(challengeID string, secret [challengeSecretSize]byte) (string, error) {
	cid, err := ParseSessionID(challengeID)
	if err != nil {
		return "", err
	}

	var raw [challengeTokenRawSize]byte
	copy(raw[:len(cid)], cid[:])
	copy(raw[len(cid):], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

func DecodeChallengeToken(token string) (string, [challengeSecretSize]byte, error) {
	var secret [challengeSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", secret, err
	}
	if len(raw) != challengeTokenRawSize {
		return "", secret, errors.New("invalid challenge token size")
	}

	var cid SessionID
	copy(cid[:], raw[:len(cid)])
	copy(secret[:], raw[len(cid):])

	return cid.String(), secret, nil
}

// NewCSRFToken returns a fresh random CSRF token value, base64url-encoded.
func NewCSRFToken() (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
