package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newEdManager(t *testing.T) (*Manager, ed25519.PrivateKey) {
	t.Helper()
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "storeguard",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, priv
}

func TestCreateAndParseAccess(t *testing.T) {
	m, _ := newEdManager(t)

	token, err := m.CreateAccess("u-1", "sid-1")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UID != "u-1" || claims.SID != "sid-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseAccessRejectsWrongAlgorithm(t *testing.T) {
	m, _ := newEdManager(t)

	claims := AccessClaims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseAccessIssuerAndLeeway(t *testing.T) {
	m, priv := newEdManager(t)

	wrongIssuer := AccessClaims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "other",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	badTok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, wrongIssuer)
	bad, _ := badTok.SignedString(priv)
	if _, err := m.ParseAccess(bad); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	withinLeeway := AccessClaims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "storeguard",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-15 * time.Second)),
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	withinTok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, withinLeeway)
	within, _ := withinTok.SignedString(priv)
	if _, err := m.ParseAccess(within); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := AccessClaims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "storeguard",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-3 * time.Minute)),
	}}
	expiredTok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, expired)
	expiredSigned, _ := expiredTok.SignedString(priv)
	if _, err := m.ParseAccess(expiredSigned); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseAccessTamperedToken(t *testing.T) {
	m, _ := newEdManager(t)

	token, err := m.CreateAccess("u-1", "sid-1")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}

	tampered := token[:len(token)-4] + "AAAA"
	if _, err := m.ParseAccess(tampered); err == nil {
		t.Fatal("expected tampered signature to fail")
	}
}

func TestNewManagerConfigValidation(t *testing.T) {
	pub, priv := newEdKeys(t)

	if _, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub}); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256}); err == nil {
		t.Fatal("expected hs256 without key to be rejected")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: "none"}); err == nil {
		t.Fatal("expected unsupported method to be rejected")
	}
}
