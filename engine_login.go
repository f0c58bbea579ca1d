package storeguard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/MrEthical07/storeguard/input"
	"github.com/MrEthical07/storeguard/internal"
	"github.com/MrEthical07/storeguard/session"
)

// rejectedReason is the one message every credential failure shares, so a
// response can never reveal whether the account exists.
const rejectedReason = "invalid credentials"

// Login verifies an email/password pair. The outcome is a tagged union:
// a session (with access and CSRF tokens), an MFA challenge to complete
// through VerifyLoginMFA, or a generic rejection. Only infrastructure
// failures surface as the error return.
func (e *Engine) Login(ctx context.Context, email, password string, rememberMe bool) (*LoginOutcome, error) {
	if e == nil || e.passwordHash == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}

	res := input.ValidateEmail(email)
	if !res.Valid {
		return e.rejectLogin(ctx, "", email, "invalid_email"), nil
	}
	email = res.Sanitized

	if password == "" {
		return e.rejectLogin(ctx, "", email, "empty_password"), nil
	}

	user, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return e.rejectLogin(ctx, "", email, "user_not_found"), nil
		}
		return nil, err
	}

	ok, err := e.passwordHash.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return e.rejectLogin(ctx, user.UserID, email, "password_mismatch"), nil
	}

	if statusErr := accountStatusToError(user.Status); statusErr != nil {
		e.metricInc(MetricLoginRejected)
		e.emitAudit(ctx, auditEventLoginRejected, false, user.UserID, "", statusErr, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "account_status",
			}
		})
		return &LoginOutcome{Status: LoginRejected, Reason: rejectedReason}, nil
	}

	if e.config.Password.UpgradeOnLogin {
		if needsUpgrade, err := e.passwordHash.NeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgradedHash, err := e.passwordHash.Hash(password); err == nil {
				// Rehash update is best-effort and must not block login.
				if err := e.userProvider.UpdatePasswordHash(ctx, user.UserID, upgradedHash); err != nil {
					log.Print("storeguard: password hash upgrade update failed")
				}
			} else {
				log.Print("storeguard: password hash upgrade generation failed")
			}
		}
	}

	secret, err := e.userProvider.GetActiveMFASecret(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}
	if secret != nil && secret.Verified {
		return e.beginMFAChallenge(ctx, user, rememberMe)
	}

	return e.finishLogin(ctx, user, rememberMe)
}

// beginMFAChallenge mints a single-use TempMfaToken. The token packs the
// challenge ID with a secret whose hash is stored server-side, so a leaked
// Redis keyspace cannot be replayed into a login.
func (e *Engine) beginMFAChallenge(ctx context.Context, user UserRecord, rememberMe bool) (*LoginOutcome, error) {
	cid, err := internal.NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMFAUnavailable, err)
	}
	secret, err := internal.NewChallengeSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMFAUnavailable, err)
	}

	expiresAt := time.Now().Add(e.config.TOTP.ChallengeTTL)
	record := &mfaChallenge{
		UserID:     user.UserID,
		SecretHash: internal.HashChallengeSecret(secret),
		RememberMe: rememberMe,
		ExpiresAt:  expiresAt.Unix(),
	}
	if err := e.challengeStore.Save(ctx, cid.String(), record, e.config.TOTP.ChallengeTTL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMFAUnavailable, err)
	}

	token, err := internal.EncodeChallengeToken(cid.String(), secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMFAUnavailable, err)
	}

	e.metricInc(MetricMFARequired)
	e.emitAudit(ctx, auditEventMFARequired, true, user.UserID, "", nil, nil)

	return &LoginOutcome{
		Status:       LoginMFARequired,
		MFAToken:     token,
		MFAExpiresAt: expiresAt,
	}, nil
}

// finishLogin is the single place a session comes into existence: after a
// successful credential check, and after the MFA check when one applies.
// It also stamps lastLoginAt, which therefore never moves on a partial or
// challenged outcome.
func (e *Engine) finishLogin(ctx context.Context, user UserRecord, rememberMe bool) (*LoginOutcome, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	sessionID := sid.String()

	now := time.Now()
	lifetime := e.sessionLifetime(rememberMe)
	sess := &session.Session{
		ID:         sessionID,
		UserID:     user.UserID,
		RememberMe: rememberMe,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(lifetime).Unix(),
	}

	if err := e.sessionStore.Save(ctx, sess, lifetime); err != nil {
		e.emitAudit(ctx, auditEventLoginRejected, false, user.UserID, sessionID, ErrSessionCreationFailed, func() map[string]string {
			return map[string]string{"reason": "session_save_failed"}
		})
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	access, err := e.jwtManager.CreateAccess(user.UserID, sessionID)
	if err != nil {
		_ = e.sessionStore.Delete(ctx, sessionID)
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	csrfToken, err := e.csrf.Issue(ctx, sessionID)
	if err != nil {
		_ = e.sessionStore.Delete(ctx, sessionID)
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	e.metricInc(MetricCSRFIssued)

	// lastLoginAt is best-effort; a provider hiccup must not undo the login.
	if err := e.userProvider.TouchLastLogin(ctx, user.UserID, now); err != nil {
		log.Print("storeguard: last login update failed")
	}

	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, sessionID, nil, func() map[string]string {
		return map[string]string{"email": user.Email}
	})

	return &LoginOutcome{
		Status:      LoginSessionIssued,
		Session:     sess,
		AccessToken: access,
		CSRFToken:   csrfToken,
	}, nil
}

func (e *Engine) rejectLogin(ctx context.Context, userID, email, why string) *LoginOutcome {
	e.metricInc(MetricLoginRejected)
	e.emitAudit(ctx, auditEventLoginRejected, false, userID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"email":  email,
			"reason": why,
		}
	})
	return &LoginOutcome{Status: LoginRejected, Reason: rejectedReason}
}
