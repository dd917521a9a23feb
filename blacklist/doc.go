// Package blacklist records revoked access and refresh tokens until they would have expired anyway.
//
// Entries are keyed by the SHA-256 of the token and carry a TTL equal to the token's remaining
// lifetime, so the list never outgrows the set of live tokens.
package blacklist
