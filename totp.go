package storeguard

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpSecretBytes = 20

type totpManager struct {
	config TOTPConfig
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	return &totpManager{config: cfg}
}

// GenerateSecret creates a fresh secret plus the otpauth:// provisioning
// key for the given account label.
func (m *totpManager) GenerateSecret(account string) (*otp.Key, error) {
	if m == nil {
		return nil, ErrEngineNotReady
	}

	alg, err := m.algorithm()
	if err != nil {
		return nil, err
	}

	return totp.Generate(totp.GenerateOpts{
		Issuer:      m.config.Issuer,
		AccountName: account,
		Period:      uint(m.config.Period),
		SecretSize:  totpSecretBytes,
		Digits:      otp.Digits(m.config.Digits),
		Algorithm:   alg,
	})
}

// VerifyCode checks a code against the configured skew window. On a match
// it returns the time-step counter the code was generated for, which the
// caller compares against the stored last-used counter to reject replays.
func (m *totpManager) VerifyCode(secretBase32, code string, now time.Time) (bool, int64, error) {
	if m == nil {
		return false, 0, ErrEngineNotReady
	}

	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumericString(trimmed) {
		return false, 0, nil
	}
	if secretBase32 == "" {
		return false, 0, errors.New("empty totp secret")
	}

	alg, err := m.algorithm()
	if err != nil {
		return false, 0, err
	}

	period := int64(m.config.Period)
	baseCounter := now.Unix() / period
	for step := -m.config.Skew; step <= m.config.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := totp.GenerateCodeCustom(secretBase32, time.Unix(counter*period, 0), totp.ValidateOpts{
			Period:    uint(m.config.Period),
			Skew:      0,
			Digits:    otp.Digits(m.config.Digits),
			Algorithm: alg,
		})
		if err != nil {
			return false, 0, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, counter, nil
		}
	}

	return false, 0, nil
}

func (m *totpManager) algorithm() (otp.Algorithm, error) {
	switch strings.ToUpper(m.config.Algorithm) {
	case "", "SHA1":
		return otp.AlgorithmSHA1, nil
	case "SHA256":
		return otp.AlgorithmSHA256, nil
	case "SHA512":
		return otp.AlgorithmSHA512, nil
	default:
		return 0, errors.New("unsupported totp algorithm")
	}
}

func isNumericString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
