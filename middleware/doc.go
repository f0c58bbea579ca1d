// Package middleware exposes net/http guards built on top of
// storeguard.Engine validation.
//
// # Guards
//
//   - [RequireAccess] — stateless bearer token verification, no Redis call.
//   - [RequireSession] — session cookie resolved against Redis on every request.
//   - [RequireCSRF] — double-submit token check for mutating methods.
//
// Each guard translates HTTP semantics into Engine calls and injects the
// validated identity into the request context.
//
// # Architecture boundaries
//
// This package does NOT implement authentication logic itself. It never
// parses tokens or touches Redis directly; all decisions are delegated
// to the Engine.
package middleware
