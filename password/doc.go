// Package password implements password hashing and verification with
// argon2id.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification reads the cost parameters back out of the stored string, so
// raising the configured costs never invalidates existing hashes.
// [Hasher.NeedsUpgrade] reports when a stored hash predates the current
// parameters; callers rehash on the next successful login.
//
// Password policy (length, character classes) lives in the input package;
// this package only hashes what it is given and never logs plaintext.
package password
