// Package limiters implements the login lockout policy: failed attempts are counted per
// identifier ("login:<ip>:<username>") and an identifier that reaches the threshold is blocked
// for a fixed duration.
//
// State lives behind the [Store] interface so lockouts survive restarts and are shared between
// instances. [SQLStore] uses the rate_limits table; [RedisStore] uses expiring hashes.
// [Sweeper] removes stale rows in the background.
package limiters
