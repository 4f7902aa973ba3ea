// file: model/profile.go

package model

import "time"

// UserProfile is the public-facing part of a user. Optional fields are nil
// when never set.
type UserProfile struct {
	UserID    int
	NickName  string
	AvatarURL *string
	Bio       *string
	Gender    *string
	Birthday  *time.Time
	UpdatedAt time.Time
}

// UpdateProfileRequest carries a partial profile update. Only fields present
// in the payload are applied.
type UpdateProfileRequest struct {
	NickName  *string `json:"nickName" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,max=255"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Gender    *string `json:"gender" validate:"omitempty,max=20"`
	// Birthday is a calendar date, YYYY-MM-DD.
	Birthday *string `json:"birthday" validate:"omitempty,max=10"`
}

type ProfileResponse struct {
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	NickName  string  `json:"nickName"`
	AvatarURL *string `json:"avatarUrl"`
	Bio       *string `json:"bio"`
	Gender    *string `json:"gender"`
	Birthday  *string `json:"birthday"`
}
