package session

import "time"

// Session is one issued refresh token. A refresh token without a row is treated as revoked even
// if its signature still verifies.
type Session struct {
	ID           int64     `db:"id"`
	AdminID      int64     `db:"admin_id"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
	CreatedAt    time.Time `db:"created_at"`
}

// Expired reports whether now is at or past the session's own expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
