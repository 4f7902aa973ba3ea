// file: model/response.go

package model

type RegisterResponse struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
}

// UserSummary is the user part of a login response.
type UserSummary struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
}

type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	User         UserSummary `json:"user"`
}

type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// MessageResponse is returned by logout and change-password.
type MessageResponse struct {
	Message string `json:"message"`
}
