// Package session provides Redis-backed session persistence with a compact
// binary encoding.
//
// Sessions are stored under an opaque random ID; the client never sees any
// session field. A per-user index set makes logout-everywhere a single set
// read, and deletion runs as a Lua script so the session key, the index
// entry, and the session counter change together.
//
// The package owns storage only. Session policy (lifetimes, remember-me,
// when to revoke) lives in the engine.
package session
