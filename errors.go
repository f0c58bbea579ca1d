package storeguard

import "errors"

var (
	// ErrUnauthorized is returned when a request carries no usable proof of identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput wraps field-validation failures surfaced through engine methods.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned on a failed email/password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when no account matches the identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned when registering an email that is already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountDisabled is returned for accounts an operator has suspended.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountDeleted is returned for soft-deleted accounts.
	ErrAccountDeleted = errors.New("account deleted")
	// ErrPasswordPolicy is returned when a new password fails the strength rules.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is returned when the replacement password equals the current one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrSessionCreationFailed wraps session store failures during login.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionInvalidationFailed wraps session store failures during logout.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrSessionNotFound is returned when a session ID resolves to nothing.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTOTPNotConfigured is returned when an MFA operation targets a user
	// with no verified authenticator.
	ErrTOTPNotConfigured = errors.New("totp not configured")
	// ErrTOTPAlreadyEnabled is returned when enrollment starts for a user
	// who already has a verified authenticator.
	ErrTOTPAlreadyEnabled = errors.New("totp already enabled")
	// ErrTOTPInvalid is returned for a wrong or reused authenticator code.
	ErrTOTPInvalid = errors.New("invalid totp code")
	// ErrTOTPUnavailable wraps provider failures on MFA secret access.
	ErrTOTPUnavailable = errors.New("totp backend unavailable")
	// ErrMFAChallengeInvalid is returned for a malformed, unknown, or
	// already-consumed login challenge token.
	ErrMFAChallengeInvalid = errors.New("mfa challenge invalid")
	// ErrMFAChallengeExpired is returned when the challenge outlived its window.
	ErrMFAChallengeExpired = errors.New("mfa challenge expired")
	// ErrMFAUnavailable wraps challenge store failures.
	ErrMFAUnavailable = errors.New("mfa challenge backend unavailable")
	// ErrTokenInvalid is returned for unparseable or unverifiable access tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrEngineNotReady is returned when an Engine method runs before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)
