package storeguard

import (
	"context"
	"fmt"

	"github.com/MrEthical07/storeguard/input"
)

// ChangePassword replaces a user's credential after verifying the current
// one. Success invalidates every existing session (CSRF tokens die with
// them), so a stolen cookie cannot outlive the password it was issued
// under. The caller's own client re-authenticates afterwards.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if e == nil || e.passwordHash == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}
	if userID == "" || oldPassword == "" {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "invalid_input"}
		})
		return ErrInvalidCredentials
	}

	if res := input.ValidatePassword(newPassword); !res.Valid {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{"reason": "policy"}
		})
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, res.Err)
	}

	user, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrUserNotFound, func() map[string]string {
			return map[string]string{"reason": "user_not_found"}
		})
		return ErrUserNotFound
	}
	if statusErr := accountStatusToError(user.Status); statusErr != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", statusErr, func() map[string]string {
			return map[string]string{"reason": "account_status"}
		})
		return statusErr
	}

	oldOK, err := e.passwordHash.Verify(oldPassword, user.PasswordHash)
	if err != nil || !oldOK {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeInvalidOld, false, userID, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	samePassword, err := e.passwordHash.Verify(newPassword, user.PasswordHash)
	if err == nil && samePassword {
		e.metricInc(MetricPasswordChangeReuseRejected)
		e.emitAudit(ctx, auditEventPasswordChangeReuse, false, userID, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{"reason": "hash_failed"}
		})
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	if err := e.userProvider.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", err, func() map[string]string {
			return map[string]string{"reason": "update_hash_failed"}
		})
		return err
	}

	if err := e.destroyAllSessions(ctx, userID); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrSessionInvalidationFailed, func() map[string]string {
			return map[string]string{"reason": "session_invalidation_failed"}
		})
		return err
	}
	e.metricInc(MetricSessionInvalidated)

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, userID, "", nil, nil)

	return nil
}
