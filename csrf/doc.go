// Package csrf issues and validates per-session CSRF tokens backed by
// Redis.
//
// Each session owns exactly one token. The token's Redis TTL is slaved to
// the session key's remaining TTL inside a Lua script, so a token can never
// outlive its session, and validating against a dead session reports
// expiry rather than mismatch. Token comparison is constant time.
package csrf
