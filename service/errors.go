package service

import "errors"

var (
	// ErrUserAlreadyExists is returned by Register when the username is taken,
	// whether detected by the lookup or by the store's uniqueness constraint.
	ErrUserAlreadyExists = errors.New("a user with this username already exists")
	// ErrInvalidCredentials covers every authentication failure. Callers must
	// not be able to tell an unknown user from a wrong password, an inactive
	// account or a dead refresh token.
	ErrInvalidCredentials = errors.New("the provided username or password is incorrect")
	// ErrTokenNotActive is returned by Rotate when another rotation, a logout
	// or a password change got to the old token first.
	ErrTokenNotActive = errors.New("refresh token is not active")
	// ErrPasswordTooLong is returned by Hash when bcrypt is configured and the
	// password exceeds its 72 byte input limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
	// ErrProfileNotFound is returned when the user owning a profile does not
	// exist.
	ErrProfileNotFound = errors.New("user profile not found")
	// ErrInvalidBirthday is returned by UpdateProfile for a birthday that is
	// not a YYYY-MM-DD calendar date.
	ErrInvalidBirthday = errors.New("birthday format is not correct, expected format: YYYY-MM-DD")
)
