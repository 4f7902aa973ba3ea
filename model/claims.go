package model

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

type AppClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID returns the numeric user id carried in the subject claim.
func (c *AppClaims) UserID() (int, error) {
	return strconv.Atoi(c.Subject)
}
