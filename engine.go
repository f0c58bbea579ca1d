package storeguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/storeguard/csrf"
	"github.com/MrEthical07/storeguard/jwt"
	"github.com/MrEthical07/storeguard/password"
	"github.com/MrEthical07/storeguard/session"
	"github.com/redis/go-redis/v9"
)

// Engine is the storefront trust boundary: credential verification, the
// TOTP second factor, sessions, and CSRF tokens. Construct it through the
// Builder; a zero Engine is not usable. All methods are safe for
// concurrent use.
type Engine struct {
	config         Config
	sessionStore   *session.Store
	csrf           *csrf.Manager
	challengeStore *mfaChallengeStore
	audit          *auditDispatcher
	metrics        *Metrics
	passwordHash   *password.Hasher
	totp           *totpManager
	jwtManager     *jwt.Manager
	userProvider   UserProvider
}

// Close stops the audit dispatcher, draining buffered events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports audit events discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// ValidateSession resolves a session ID to its live session record. It is
// the authoritative check: the session must exist in Redis and the account
// behind it must still be active. A session whose account was disabled or
// deleted is destroyed on sight.
func (e *Engine) ValidateSession(ctx context.Context, sessionID string) (*session.Session, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricSessionValidateLatency, time.Since(start)) }()
	}

	sess, err := e.sessionStore.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}

	user, err := e.userProvider.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = e.destroySession(ctx, sessionID)
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if statusErr := accountStatusToError(user.Status); statusErr != nil {
		_ = e.destroySession(ctx, sessionID)
		e.metricInc(MetricSessionInvalidated)
		return nil, statusErr
	}

	return sess, nil
}

// ValidateAccess is the stateless fast path: it verifies the signed access
// token without touching Redis. Use ValidateSession when revocation must
// be observed immediately.
func (e *Engine) ValidateAccess(tokenStr string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		return nil, ErrUnauthorized
	}

	return &AuthResult{
		UserID:    claims.UID,
		SessionID: claims.SID,
	}, nil
}

// Logout destroys one session and its CSRF token. Deleting an absent
// session is not an error.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	err := e.destroySession(ctx, sessionID)
	if err == nil {
		e.metricInc(MetricLogout)
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogoutSession, err == nil, "", sessionID, err, nil)
	return err
}

// LogoutAll destroys every session the user holds, CSRF tokens included.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	err := e.destroyAllSessions(ctx, userID)
	if err == nil {
		e.metricInc(MetricLogoutAll)
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogoutAll, err == nil, userID, "", err, nil)
	return err
}

// destroySession removes the CSRF token before the session so no window
// exists where the token validates against a dead session.
func (e *Engine) destroySession(ctx context.Context, sessionID string) error {
	if e.csrf != nil {
		if err := e.csrf.Clear(ctx, sessionID); err != nil {
			return fmt.Errorf("%w: %v", ErrSessionInvalidationFailed, err)
		}
	}
	if err := e.sessionStore.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionInvalidationFailed, err)
	}
	return nil
}

func (e *Engine) destroyAllSessions(ctx context.Context, userID string) error {
	if e.csrf != nil {
		ids, err := e.sessionStore.ActiveSessionIDs(ctx, userID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSessionInvalidationFailed, err)
		}
		for _, id := range ids {
			if err := e.csrf.Clear(ctx, id); err != nil {
				return fmt.Errorf("%w: %v", ErrSessionInvalidationFailed, err)
			}
		}
	}
	if err := e.sessionStore.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionInvalidationFailed, err)
	}
	return nil
}

// IssueCSRFToken mints a fresh token bound to the session, replacing any
// previous one. csrf.ErrSessionExpired signals the session is gone.
func (e *Engine) IssueCSRFToken(ctx context.Context, sessionID string) (string, error) {
	if e == nil || e.csrf == nil {
		return "", ErrEngineNotReady
	}
	token, err := e.csrf.Issue(ctx, sessionID)
	if err == nil {
		e.metricInc(MetricCSRFIssued)
	}
	return token, err
}

// ValidateCSRFToken checks a supplied token against the session's stored
// one. csrf.ErrTokenMismatch deliberately covers missing and wrong alike;
// csrf.ErrSessionExpired is distinguishable so the client can re-login.
func (e *Engine) ValidateCSRFToken(ctx context.Context, sessionID, token string) error {
	if e == nil || e.csrf == nil {
		return ErrEngineNotReady
	}
	err := e.csrf.Validate(ctx, sessionID, token)
	if err != nil && !errors.Is(err, csrf.ErrRedisUnavailable) {
		e.metricInc(MetricCSRFRejected)
		e.emitAudit(ctx, auditEventCSRFRejected, false, "", sessionID, err, nil)
	}
	return err
}

// RotateCSRFToken atomically replaces the session's token. Callers invoke
// it after privilege-elevating actions.
func (e *Engine) RotateCSRFToken(ctx context.Context, sessionID string) (string, error) {
	if e == nil || e.csrf == nil {
		return "", ErrEngineNotReady
	}
	token, err := e.csrf.Rotate(ctx, sessionID)
	if err == nil {
		e.metricInc(MetricCSRFIssued)
	}
	return token, err
}

func (e *Engine) sessionLifetime(rememberMe bool) time.Duration {
	if rememberMe && e.config.Session.RememberMeLifetime > 0 {
		return e.config.Session.RememberMeLifetime
	}
	return e.config.Session.Lifetime
}

func accountStatusToError(status AccountStatus) error {
	switch status {
	case AccountActive:
		return nil
	case AccountDisabled:
		return ErrAccountDisabled
	case AccountDeleted:
		return ErrAccountDeleted
	default:
		return ErrAccountDisabled
	}
}
