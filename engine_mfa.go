package storeguard

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/storeguard/internal"
	"github.com/google/uuid"
)

// BeginTOTPEnrollment starts authenticator enrollment for a user. The new
// secret is stored unverified and grants no protection until confirmed;
// beginning again before confirming replaces the pending secret. A user
// with an already-verified secret gets ErrTOTPAlreadyEnabled.
func (e *Engine) BeginTOTPEnrollment(ctx context.Context, userID string) (*TOTPSetup, error) {
	if e == nil || e.totp == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if statusErr := accountStatusToError(user.Status); statusErr != nil {
		return nil, statusErr
	}

	existing, err := e.userProvider.GetActiveMFASecret(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}
	if existing != nil && existing.Verified {
		return nil, ErrTOTPAlreadyEnabled
	}

	key, err := e.totp.GenerateSecret(user.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}

	record := MFASecretRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Secret:    key.Secret(),
		Verified:  false,
		CreatedAt: time.Now().Unix(),
	}
	if err := e.userProvider.CreateMFASecret(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}

	e.metricInc(MetricTOTPEnrollmentStarted)
	e.emitAudit(ctx, auditEventTOTPSetupRequested, true, userID, "", nil, nil)

	return &TOTPSetup{
		SecretID:        record.ID,
		SecretBase32:    record.Secret,
		ProvisioningURI: key.URL(),
	}, nil
}

// ConfirmTOTPEnrollment promotes a pending secret to Active after one
// correct code. A wrong code leaves the pending secret intact for retry.
// The store serializes concurrent confirmations: at most one secret per
// user ever becomes Active.
func (e *Engine) ConfirmTOTPEnrollment(ctx context.Context, secretID, code string) error {
	if e == nil || e.totp == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}

	record, err := e.userProvider.GetMFASecretByID(ctx, secretID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}
	if record == nil {
		return ErrTOTPNotConfigured
	}
	if record.Verified {
		return ErrTOTPAlreadyEnabled
	}

	ok, counter, err := e.totp.VerifyCode(record.Secret, code, time.Now())
	if err != nil {
		return ErrTOTPInvalid
	}
	if !ok {
		e.metricInc(MetricMFAFailure)
		e.emitAudit(ctx, auditEventMFAFailure, false, record.UserID, "", ErrTOTPInvalid, func() map[string]string {
			return map[string]string{"phase": "enrollment"}
		})
		return ErrTOTPInvalid
	}

	if err := e.userProvider.ActivateMFASecret(ctx, secretID); err != nil {
		return fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}
	if e.config.TOTP.EnforceReplayProtection {
		if err := e.userProvider.UpdateMFALastUsedCounter(ctx, secretID, counter); err != nil {
			return fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
		}
	}

	e.metricInc(MetricTOTPEnabled)
	e.emitAudit(ctx, auditEventTOTPEnabled, true, record.UserID, "", nil, nil)
	return nil
}

// VerifyLoginMFA exchanges a TempMfaToken plus a correct code for a
// session. The token is consumed on this first attempt whatever happens;
// a second call with the same token is rejected. Failures are one generic
// rejection so a caller cannot learn whether the token or the code was
// wrong.
func (e *Engine) VerifyLoginMFA(ctx context.Context, tempToken, code string) (*LoginOutcome, error) {
	if e == nil || e.totp == nil || e.challengeStore == nil {
		return nil, ErrEngineNotReady
	}

	cid, secret, err := internal.DecodeChallengeToken(tempToken)
	if err != nil {
		return e.rejectMFA(ctx, "", "malformed_token"), nil
	}

	record, err := e.challengeStore.Consume(ctx, cid)
	if err != nil {
		switch {
		case errors.Is(err, errMFAChallengeNotFound):
			return e.rejectMFA(ctx, "", "unknown_or_consumed_token"), nil
		case errors.Is(err, errMFAChallengeExpired):
			return e.rejectMFA(ctx, "", "expired_token"), nil
		default:
			return nil, fmt.Errorf("%w: %v", ErrMFAUnavailable, err)
		}
	}

	suppliedHash := internal.HashChallengeSecret(secret)
	if subtle.ConstantTimeCompare(suppliedHash[:], record.SecretHash[:]) != 1 {
		return e.rejectMFA(ctx, record.UserID, "secret_mismatch"), nil
	}

	user, err := e.userProvider.GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return e.rejectMFA(ctx, record.UserID, "user_gone"), nil
		}
		return nil, err
	}
	if statusErr := accountStatusToError(user.Status); statusErr != nil {
		return e.rejectMFA(ctx, user.UserID, "account_status"), nil
	}

	mfaSecret, err := e.userProvider.GetActiveMFASecret(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}
	if mfaSecret == nil || !mfaSecret.Verified {
		return e.rejectMFA(ctx, user.UserID, "mfa_disabled_since_challenge"), nil
	}

	ok, counter, err := e.totp.VerifyCode(mfaSecret.Secret, code, time.Now())
	if err != nil || !ok {
		return e.rejectMFA(ctx, user.UserID, "code_mismatch"), nil
	}
	if e.config.TOTP.EnforceReplayProtection {
		if counter <= mfaSecret.LastUsedCounter {
			e.metricInc(MetricMFAReplayAttempt)
			return e.rejectMFA(ctx, user.UserID, "code_replay"), nil
		}
		if err := e.userProvider.UpdateMFALastUsedCounter(ctx, mfaSecret.ID, counter); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
		}
	}

	outcome, err := e.finishLogin(ctx, user, record.RememberMe)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricMFASuccess)
	e.emitAudit(ctx, auditEventMFASuccess, true, user.UserID, outcome.Session.ID, nil, nil)
	return outcome, nil
}

// DisableTOTP turns the second factor off. It demands a current code so a
// hijacked session alone cannot downgrade the account, and it destroys all
// sessions afterwards for the same reason.
func (e *Engine) DisableTOTP(ctx context.Context, userID, code string) error {
	if e == nil || e.totp == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}

	record, err := e.userProvider.GetActiveMFASecret(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}
	if record == nil || !record.Verified {
		return ErrTOTPNotConfigured
	}

	ok, counter, err := e.totp.VerifyCode(record.Secret, code, time.Now())
	if err != nil || !ok {
		e.metricInc(MetricMFAFailure)
		e.emitAudit(ctx, auditEventMFAFailure, false, userID, "", ErrTOTPInvalid, func() map[string]string {
			return map[string]string{"phase": "disable"}
		})
		return ErrTOTPInvalid
	}
	if e.config.TOTP.EnforceReplayProtection && counter <= record.LastUsedCounter {
		e.metricInc(MetricMFAReplayAttempt)
		return ErrTOTPInvalid
	}

	if err := e.userProvider.DisableMFA(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}

	if err := e.destroyAllSessions(ctx, userID); err != nil {
		return err
	}

	e.metricInc(MetricTOTPDisabled)
	e.emitAudit(ctx, auditEventTOTPDisabled, true, userID, "", nil, nil)
	return nil
}

func (e *Engine) rejectMFA(ctx context.Context, userID, why string) *LoginOutcome {
	e.metricInc(MetricMFAFailure)
	e.emitAudit(ctx, auditEventMFAFailure, false, userID, "", ErrMFAChallengeInvalid, func() map[string]string {
		return map[string]string{"reason": why}
	})
	return &LoginOutcome{Status: LoginRejected, Reason: "invalid code"}
}
