package session

// Session is the server-side session record. The client only ever holds the
// opaque session ID; everything else lives in Redis.
type Session struct {
	ID     string
	UserID string

	// RememberMe extends the session lifetime and is consulted again when
	// a pending MFA challenge completes the login it deferred.
	RememberMe bool

	IssuedAt  int64
	ExpiresAt int64
}
