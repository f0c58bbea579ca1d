package storeguard

import (
	"context"
	"time"

	"github.com/MrEthical07/storeguard/session"
)

// AccountStatus is the lifecycle state of a user account.
type AccountStatus uint8

const (
	AccountActive AccountStatus = iota
	AccountDisabled
	AccountDeleted
)

// UserProvider is the interface callers implement to plug storeguard into
// their user database. Lookup methods return ErrUserNotFound for unknown
// users; CreateUser returns ErrAccountExists for a duplicate email.
//
// The store owns the MFA uniqueness rules: CreateMFASecret replaces any
// pending (unverified) secret for the user, and ActivateMFASecret must
// guarantee at most one verified secret per user, for example with a
// partial unique index.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
	UpdateAccountStatus(ctx context.Context, userID string, status AccountStatus) error
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error

	GetActiveMFASecret(ctx context.Context, userID string) (*MFASecretRecord, error)
	GetMFASecretByID(ctx context.Context, secretID string) (*MFASecretRecord, error)
	CreateMFASecret(ctx context.Context, record MFASecretRecord) error
	ActivateMFASecret(ctx context.Context, secretID string) error
	DisableMFA(ctx context.Context, userID string) error
	UpdateMFALastUsedCounter(ctx context.Context, secretID string, counter int64) error
}

// UserRecord is the account record returned by UserProvider.
type UserRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	Status       AccountStatus
	LastLoginAt  int64
}

// CreateUserInput is the input for UserProvider.CreateUser. Email arrives
// already validated and lowercased; PasswordHash is a PHC argon2id string.
type CreateUserInput struct {
	UserID       string
	Email        string
	PasswordHash string
	Status       AccountStatus
}

// MFASecretRecord is an authenticator secret. Verified is false between
// BeginTOTPEnrollment and ConfirmTOTPEnrollment; an unverified secret
// grants no protection and blocks nothing. LastUsedCounter is the highest
// accepted time-step counter, kept for replay rejection.
type MFASecretRecord struct {
	ID              string
	UserID          string
	Secret          string // base32, no padding
	Verified        bool
	LastUsedCounter int64
	CreatedAt       int64
}

// LoginStatus tags a LoginOutcome. The zero value is LoginRejected so a
// forgotten assignment can never read as success.
type LoginStatus uint8

const (
	LoginRejected LoginStatus = iota
	LoginSessionIssued
	LoginMFARequired
)

// LoginOutcome is the tagged result of Login and VerifyLoginMFA. Exactly
// one branch is populated:
//
//   - LoginSessionIssued: Session, AccessToken, and CSRFToken are set.
//   - LoginMFARequired: MFAToken and MFAExpiresAt are set; the caller must
//     complete the login through VerifyLoginMFA.
//   - LoginRejected: Reason carries a generic, enumeration-safe message.
//
// Expected authentication failures are outcomes, not errors; the error
// return of the engine methods is reserved for infrastructure failures.
type LoginOutcome struct {
	Status LoginStatus

	Session     *session.Session
	AccessToken string
	CSRFToken   string

	MFAToken     string
	MFAExpiresAt time.Time

	Reason string
}

// TOTPSetup is returned by BeginTOTPEnrollment. The secret and URI are
// shown to the user exactly once; the engine keeps only the stored record.
type TOTPSetup struct {
	SecretID        string
	SecretBase32    string
	ProvisioningURI string
}

// AuthResult is the outcome of the access-token fast path.
type AuthResult struct {
	UserID    string
	SessionID string
}
