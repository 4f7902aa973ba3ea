// file: model/token.go

package model

import "time"

// RefreshToken holds the data for a refresh token in the database.
// Records are never deleted; Revoked only ever moves from false to true.
type RefreshToken struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Token     string    `json:"-"` // The raw value is not exposed in JSON responses.
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// IsActive reports whether the token is unrevoked and unexpired at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
