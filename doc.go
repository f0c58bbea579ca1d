// Package storeguard is the trust boundary of an e-commerce storefront:
// credential verification with argon2id, an optional TOTP second factor,
// Redis-backed sessions, per-session CSRF tokens, and an input
// sanitization boundary for every untrusted string.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// storeguard is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (LoginOutcome, TOTPSetup, MetricsSnapshot).
// Credential storage stays behind the injected [UserProvider]; Redis is
// only ever touched through Engine methods. The input, csrf, session,
// password, and jwt subpackages are usable on their own, and consumer
// flows (registration, login, settings, admin forms) must go through
// them rather than reimplement escaping or token checks locally.
//
// # Outcomes vs errors
//
// Expected authentication failures (a wrong password, a spent challenge
// token) are values: a [LoginOutcome] with LoginRejected, or a typed
// sentinel error classified with errors.Is. The error returns of Engine
// methods additionally carry infrastructure failures, wrapped so that the
// sentinel class survives errors.Is.
package storeguard
