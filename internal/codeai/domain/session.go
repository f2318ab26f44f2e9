package domain

import "time"

// Session is an authenticated session created at the end of a successful MFA
// verification. Its ID is carried in the session token's sid claim; deleting
// the row revokes the token.
type Session struct {
	ID         string
	UserID     string
	LastSeenAt time.Time
	ExpiresAt  time.Time // absolute cap, idle expiry is checked against LastSeenAt
	CreatedAt  time.Time
}
