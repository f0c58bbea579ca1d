package csrf

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionExpired reports that the session backing a CSRF token no
	// longer exists. It is distinguishable from a mismatch so callers can
	// send the client back to login instead of refreshing the token.
	ErrSessionExpired = errors.New("session expired")

	// ErrTokenMismatch covers both a missing and a wrong token; the two
	// are indistinguishable to the caller on purpose.
	ErrTokenMismatch = errors.New("csrf token mismatch")

	// ErrRedisUnavailable wraps backend failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// issueScript stores a token only while its session exists, with the
// token's TTL slaved to the session key's remaining TTL. Checking and
// setting inside one script closes the gap where a session dies between
// the liveness check and the write.
const issueScript = `
local session_ttl = redis.call("PTTL", KEYS[1])
if session_ttl <= 0 then
  redis.call("DEL", KEYS[2])
  return 0
end
redis.call("SET", KEYS[2], ARGV[1], "PX", session_ttl)
return 1
`

// lookupScript reads the stored token only while the session is live, and
// clears an orphaned token when it is not.
const lookupScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  redis.call("DEL", KEYS[2])
  return false
end
return redis.call("GET", KEYS[2])
`

var (
	issueLua  = redis.NewScript(issueScript)
	lookupLua = redis.NewScript(lookupScript)
)

// Manager stores one CSRF token per session in Redis. A token is valid only
// while its session is, and only for that session: the stored value is keyed
// by session ID and compared in constant time.
type Manager struct {
	redis      redis.UniversalClient
	prefix     string
	sessionKey func(sessionID string) string
	newToken   func() (string, error)
}

// NewManager returns a manager bound to the given session keyspace.
// sessionKey maps a session ID to the Redis key holding that session;
// newToken produces fresh random token values.
func NewManager(
	rdb redis.UniversalClient,
	prefix string,
	sessionKey func(sessionID string) string,
	newToken func() (string, error),
) *Manager {
	if prefix == "" {
		prefix = "sg"
	}
	return &Manager{
		redis:      rdb,
		prefix:     prefix,
		sessionKey: sessionKey,
		newToken:   newToken,
	}
}

func (m *Manager) tokenKey(sessionID string) string {
	return m.prefix + ":c:" + sessionID
}

// Issue mints and stores a fresh token for the session, replacing any
// previous one. It fails with ErrSessionExpired when the session is gone.
func (m *Manager) Issue(ctx context.Context, sessionID string) (string, error) {
	token, err := m.newToken()
	if err != nil {
		return "", err
	}

	keys := []string{m.sessionKey(sessionID), m.tokenKey(sessionID)}
	stored, err := issueLua.Run(ctx, m.redis, keys, token).Int64()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if stored == 0 {
		return "", ErrSessionExpired
	}

	return token, nil
}

// Validate checks a submitted token against the stored one. Expired
// sessions and wrong tokens fail differently; a wrong token and a missing
// token do not.
func (m *Manager) Validate(ctx context.Context, sessionID, token string) error {
	if token == "" {
		return ErrTokenMismatch
	}

	keys := []string{m.sessionKey(sessionID), m.tokenKey(sessionID)}
	stored, err := lookupLua.Run(ctx, m.redis, keys).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// False from the script (dead session) and a missing token
			// key both surface as redis.Nil; tell them apart here.
			alive, existsErr := m.redis.Exists(ctx, m.sessionKey(sessionID)).Result()
			if existsErr != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, existsErr)
			}
			if alive == 0 {
				return ErrSessionExpired
			}
			return ErrTokenMismatch
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return ErrTokenMismatch
	}

	return nil
}

// Rotate replaces the session's token. Callers invoke it after privilege
// transitions such as a password change so a token captured earlier stops
// working.
func (m *Manager) Rotate(ctx context.Context, sessionID string) (string, error) {
	return m.Issue(ctx, sessionID)
}

// Clear drops the session's token. Used on logout alongside session
// deletion; clearing a token that is already gone is not an error.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	if err := m.redis.Del(ctx, m.tokenKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
