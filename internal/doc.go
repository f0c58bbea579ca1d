// Package internal contains helper utilities that are intentionally private
// to storeguard: secure random identifiers, CSRF token generation, and the
// MFA challenge token codec.
//
// # What this package must NOT do
//
//   - Export types that appear in the public storeguard API.
//   - Be imported by any package outside the storeguard module.
package internal
