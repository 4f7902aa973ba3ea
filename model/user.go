// file: model/user.go

package model

import "time"

// User is the identity record owned by the user store.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never serialised.
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	LastLoginAt  time.Time `json:"last_login_at"`
	RegisterIP   string    `json:"register_ip,omitempty"`
}
