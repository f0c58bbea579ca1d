package storeguard

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/storeguard/input"
	"github.com/google/uuid"
)

// CreateAccount registers a new user. Email and password pass through the
// input trust boundary first; the stored email is the lowercased canonical
// form, so case variants of one address cannot mint two accounts.
func (e *Engine) CreateAccount(ctx context.Context, email, password string) (UserRecord, error) {
	if e == nil || e.passwordHash == nil || e.userProvider == nil {
		return UserRecord{}, ErrEngineNotReady
	}

	emailRes := input.ValidateEmail(email)
	if !emailRes.Valid {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, emailRes.Err)
	}
	passRes := input.ValidatePassword(password)
	if !passRes.Valid {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrPasswordPolicy, passRes.Err)
	}

	hash, err := e.passwordHash.Hash(password)
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	user, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		UserID:       uuid.NewString(),
		Email:        emailRes.Sanitized,
		PasswordHash: hash,
		Status:       AccountActive,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricAccountCreationDuplicate)
			e.emitAudit(ctx, auditEventAccountCreationDuplicate, false, "", "", ErrAccountExists, func() map[string]string {
				return map[string]string{"email": emailRes.Sanitized}
			})
			return UserRecord{}, ErrAccountExists
		}
		return UserRecord{}, err
	}

	e.metricInc(MetricAccountCreationSuccess)
	e.emitAudit(ctx, auditEventAccountCreationSuccess, true, user.UserID, "", nil, func() map[string]string {
		return map[string]string{"email": user.Email}
	})

	return user, nil
}

// SetAccountStatus changes an account's lifecycle state. Moving away from
// Active destroys every session the user holds, so a disabled or deleted
// account loses access immediately rather than at session expiry.
func (e *Engine) SetAccountStatus(ctx context.Context, userID string, status AccountStatus) error {
	if e == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}

	if _, err := e.userProvider.GetUserByID(ctx, userID); err != nil {
		return err
	}

	if err := e.userProvider.UpdateAccountStatus(ctx, userID, status); err != nil {
		return err
	}

	if status != AccountActive {
		if err := e.destroyAllSessions(ctx, userID); err != nil {
			return err
		}
		e.metricInc(MetricSessionInvalidated)
	}

	e.emitAudit(ctx, auditEventAccountStatusChange, true, userID, "", nil, func() map[string]string {
		return map[string]string{"status": accountStatusLabel(status)}
	})
	return nil
}

func accountStatusLabel(status AccountStatus) string {
	switch status {
	case AccountActive:
		return "active"
	case AccountDisabled:
		return "disabled"
	case AccountDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
