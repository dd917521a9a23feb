// Package password hashes and verifies admin passwords.
//
// New hashes use Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Bcrypt hashes are still accepted by [Multi.Verify] and reported by [Multi.NeedsUpgrade].
//
// This package never stores passwords and never logs plaintext or hash parameters.
package password
