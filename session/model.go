package session

import "time"

// Session binds a user and client metadata to an expiration. It is the
// authority root for every token that references its SessionID: an access
// or refresh token is only as valid as the session it points at.
type Session struct {
	SessionID string
	UserID    string
	UserAgent string

	CreatedAt int64
	ExpiresAt int64
}

// Expired reports whether the session's expiration has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}

// Remaining returns the validity left at now. Negative when expired.
func (s *Session) Remaining(now time.Time) time.Duration {
	return time.Unix(s.ExpiresAt, 0).Sub(now)
}
