package storeguard

import (
	"encoding/base32"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

func b32(secret string) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(secret))
}

func TestTOTPVerifyRFCVectorsSHA1(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "storeguard",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      0,
	})
	secret := b32("12345678901234567890")
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
		{20000000000, "65353130"},
	}

	for _, tc := range cases {
		ok, _, err := m.VerifyCode(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA1 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestTOTPVerifyRFCVectorsSHA256(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "storeguard",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA256",
		Skew:      0,
	})
	secret := b32("12345678901234567890123456789012")
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "46119246"},
		{1111111109, "68084774"},
		{1111111111, "67062674"},
		{1234567890, "91819424"},
		{2000000000, "90698825"},
		{20000000000, "77737706"},
	}

	for _, tc := range cases {
		ok, _, err := m.VerifyCode(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA256 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestTOTPVerifyRFCVectorsSHA512(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "storeguard",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA512",
		Skew:      0,
	})
	secret := b32("1234567890123456789012345678901234567890123456789012345678901234")
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "90693936"},
		{1111111109, "25091201"},
		{1111111111, "99943326"},
		{1234567890, "93441116"},
		{2000000000, "38618901"},
		{20000000000, "47863826"},
	}

	for _, tc := range cases {
		ok, _, err := m.VerifyCode(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA512 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestTOTPVerifyRejectsWrongCode(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "storeguard",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      0,
	})
	secret := b32("12345678901234567890")

	ok, _, err := m.VerifyCode(secret, "00000000", time.Unix(59, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong code to be rejected")
	}
}

func TestTOTPVerifyRejectsBadCodeShape(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "storeguard",
		Digits:    6,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      1,
	})
	secret := b32("12345678901234567890")

	for _, code := range []string{"", "12345", "1234567", "12a456", "abcdef"} {
		ok, _, err := m.VerifyCode(secret, code, time.Now())
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", code, err)
		}
		if ok {
			t.Fatalf("expected code %q to be rejected", code)
		}
	}
}

func TestTOTPVerifySkewWindow(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "storeguard",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      1,
	})
	secret := b32("12345678901234567890")

	// Vector for t=59 (counter 1), checked one period later (counter 2).
	ok, counter, err := m.VerifyCode(secret, "94287082", time.Unix(89, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected code to match within skew window")
	}
	if counter != 1 {
		t.Fatalf("expected matched counter 1, got %d", counter)
	}

	// Two periods later the code falls outside the window.
	ok, _, err = m.VerifyCode(secret, "94287082", time.Unix(119, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected code outside skew window to be rejected")
	}
}

func TestTOTPVerifyReturnsCounterForReplayChecks(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "storeguard",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      0,
	})
	secret := b32("12345678901234567890")

	ok, counter, err := m.VerifyCode(secret, "89005924", time.Unix(1234567890, 0))
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	if want := int64(1234567890 / 30); counter != want {
		t.Fatalf("expected counter %d, got %d", want, counter)
	}
}

func TestTOTPGenerateSecretProvisioningURI(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "Acme Store",
		Digits:    6,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      1,
	})

	key, err := m.GenerateSecret("alice@example.com")
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	if key.Secret() == "" {
		t.Fatal("expected non-empty secret")
	}
	if key.Issuer() != "Acme Store" {
		t.Fatalf("expected issuer in key, got %q", key.Issuer())
	}
	if key.AccountName() != "alice@example.com" {
		t.Fatalf("expected account name in key, got %q", key.AccountName())
	}

	// A generated secret must round-trip through verification.
	now := time.Now()
	counter := now.Unix() / 30
	ok, _, err := m.VerifyCode(key.Secret(), codeFor(t, m, key.Secret(), counter), now)
	if err != nil || !ok {
		t.Fatalf("generated secret failed verification, ok=%v err=%v", ok, err)
	}
}

func codeFor(t *testing.T, m *totpManager, secret string, counter int64) string {
	t.Helper()

	alg, err := m.algorithm()
	if err != nil {
		t.Fatalf("algorithm: %v", err)
	}
	code, err := totp.GenerateCodeCustom(secret, time.Unix(counter*int64(m.config.Period), 0), totp.ValidateOpts{
		Period:    uint(m.config.Period),
		Digits:    otp.Digits(m.config.Digits),
		Algorithm: alg,
	})
	if err != nil {
		t.Fatalf("code generation failed: %v", err)
	}
	return code
}
