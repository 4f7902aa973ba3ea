package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cocity-api/logger"
	"cocity-api/metrics"
	"cocity-api/model"
	"cocity-api/repository"

	"github.com/sirupsen/logrus"
)

const (
	MsgLogoutSuccessful        = "Logout successful"
	MsgPasswordChanged         = "Password changed successfully"
	MsgPasswordUnchanged       = "New password cannot be the same as the old password"
	accessTokenExpiresInSecond = int(AccessTokenTTL / time.Second)
)

// AccessTokenIssuer signs access tokens for authenticated users.
type AccessTokenIssuer interface {
	IssueAccessToken(user *model.User) (string, error)
}

// IAuthService is the set of authentication use cases exposed to handlers.
type IAuthService interface {
	Register(ctx context.Context, username, password, originIP string) (*model.RegisterResponse, error)
	Login(ctx context.Context, username, password string) (*model.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string, userID int) (*model.RefreshResponse, error)
	Logout(ctx context.Context, refreshToken string, userID int) (*model.MessageResponse, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword, refreshToken string, userID int) (*model.MessageResponse, error)
}

// AuthService composes the user store, password hasher, access token issuer
// and refresh token lifecycle. Every authentication failure surfaces as
// ErrInvalidCredentials; the underlying cause is only logged.
type AuthService struct {
	users     repository.IUserRepository
	passwords PasswordHasher
	tokens    AccessTokenIssuer
	refresh   RefreshTokenManager
	clock     Clock

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users repository.IUserRepository, passwords PasswordHasher, tokens AccessTokenIssuer, refresh RefreshTokenManager, clock Clock) *AuthService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		refresh:   refresh,
		clock:     clock,
	}
}

// Register creates an active user. A name taken between the lookup and the
// insert is reported by the store and mapped to ErrUserAlreadyExists.
func (s *AuthService) Register(ctx context.Context, username, password, originIP string) (*model.RegisterResponse, error) {
	log := logger.Log.WithField("username", username)

	_, err := s.users.GetByName(ctx, username)
	switch {
	case err == nil:
		log.Warn("Registration rejected, username taken")
		metrics.ObserveAuth("register", metrics.OutcomeConflict)
		return nil, ErrUserAlreadyExists
	case !errors.Is(err, repository.ErrNotFound):
		metrics.ObserveAuth("register", metrics.OutcomeError)
		return nil, fmt.Errorf("could not look up user: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		metrics.ObserveAuth("register", hashOutcome(err))
		return nil, err
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		RegisterIP:   strings.TrimSpace(originIP),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			log.Warn("Registration lost a race for the username")
			metrics.ObserveAuth("register", metrics.OutcomeConflict)
			return nil, ErrUserAlreadyExists
		}
		metrics.ObserveAuth("register", metrics.OutcomeError)
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	log.WithField("user_id", user.ID).Info("User registered")
	metrics.ObserveAuth("register", metrics.OutcomeSuccess)
	return &model.RegisterResponse{UserID: user.ID, Username: user.Username}, nil
}

// Login checks the password and issues an access token and a new refresh
// token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	log := logger.Log.WithField("username", username)

	user, err := s.users.GetByName(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.verifyDummy(password)
			return nil, s.denied("login", log, "unknown user")
		}
		metrics.ObserveAuth("login", metrics.OutcomeError)
		return nil, fmt.Errorf("could not look up user: %w", err)
	}
	log = log.WithField("user_id", user.ID)

	if !s.passwords.Verify(password, user.PasswordHash) {
		return nil, s.denied("login", log, "wrong password")
	}
	if !user.IsActive {
		return nil, s.denied("login", log, "inactive user")
	}

	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		metrics.ObserveAuth("login", metrics.OutcomeError)
		return nil, err
	}
	rt, err := s.refresh.Issue(ctx, user.ID)
	if err != nil {
		metrics.ObserveAuth("login", metrics.OutcomeError)
		return nil, err
	}

	user.LastLoginAt = s.clock.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, user.LastLoginAt); err != nil {
		log.WithError(err).Warn("Could not record last login time")
	}

	log.Info("User logged in")
	metrics.ObserveAuth("login", metrics.OutcomeSuccess)
	return &model.LoginResponse{
		AccessToken:  access,
		RefreshToken: rt.Token,
		ExpiresIn:    accessTokenExpiresInSecond,
		User:         model.UserSummary{UserID: user.ID, Username: user.Username},
	}, nil
}

// Refresh exchanges a live refresh token for a new pair. The old token is
// dead once this returns successfully.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, userID int) (*model.RefreshResponse, error) {
	log := logger.Log.WithField("user_id", userID)

	ok, err := s.refresh.Validate(ctx, refreshToken, userID)
	if err != nil {
		metrics.ObserveAuth("refresh", metrics.OutcomeError)
		return nil, err
	}
	if !ok {
		return nil, s.denied("refresh", log, "refresh token not valid")
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, s.denied("refresh", log, "user missing or inactive")
		}
		metrics.ObserveAuth("refresh", metrics.OutcomeError)
		return nil, err
	}

	next, err := s.refresh.Rotate(ctx, refreshToken, userID)
	if err != nil {
		if errors.Is(err, ErrTokenNotActive) {
			return nil, s.denied("refresh", log, "refresh token consumed concurrently")
		}
		metrics.ObserveAuth("refresh", metrics.OutcomeError)
		return nil, err
	}

	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		metrics.ObserveAuth("refresh", metrics.OutcomeError)
		return nil, err
	}

	metrics.ObserveAuth("refresh", metrics.OutcomeSuccess)
	return &model.RefreshResponse{
		AccessToken:  access,
		RefreshToken: next.Token,
		ExpiresIn:    accessTokenExpiresInSecond,
	}, nil
}

// Logout revokes a single refresh token of userID.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, userID int) (*model.MessageResponse, error) {
	log := logger.Log.WithField("user_id", userID)

	ok, err := s.refresh.Validate(ctx, refreshToken, userID)
	if err != nil {
		metrics.ObserveAuth("logout", metrics.OutcomeError)
		return nil, err
	}
	if !ok {
		return nil, s.denied("logout", log, "refresh token not valid")
	}

	if err := s.refresh.Revoke(ctx, refreshToken); err != nil {
		metrics.ObserveAuth("logout", metrics.OutcomeError)
		return nil, err
	}

	log.Info("User logged out")
	metrics.ObserveAuth("logout", metrics.OutcomeSuccess)
	return &model.MessageResponse{Message: MsgLogoutSuccessful}, nil
}

// ChangePassword replaces the password hash and revokes every refresh token
// of the user, including the one presented. Reusing the old password is a
// benign no-op answered with a message.
func (s *AuthService) ChangePassword(ctx context.Context, oldPassword, newPassword, refreshToken string, userID int) (*model.MessageResponse, error) {
	log := logger.Log.WithField("user_id", userID)

	if newPassword == oldPassword {
		metrics.ObserveAuth("changepwd", metrics.OutcomeUnchanged)
		return &model.MessageResponse{Message: MsgPasswordUnchanged}, nil
	}

	ok, err := s.refresh.Validate(ctx, refreshToken, userID)
	if err != nil {
		metrics.ObserveAuth("changepwd", metrics.OutcomeError)
		return nil, err
	}
	if !ok {
		return nil, s.denied("changepwd", log, "refresh token not valid")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.denied("changepwd", log, "user not found")
		}
		metrics.ObserveAuth("changepwd", metrics.OutcomeError)
		return nil, fmt.Errorf("could not look up user: %w", err)
	}
	if !s.passwords.Verify(oldPassword, user.PasswordHash) {
		return nil, s.denied("changepwd", log, "wrong old password")
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		metrics.ObserveAuth("changepwd", hashOutcome(err))
		return nil, err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.denied("changepwd", log, "user vanished during update")
		}
		metrics.ObserveAuth("changepwd", metrics.OutcomeError)
		return nil, fmt.Errorf("could not update user: %w", err)
	}

	if err := s.refresh.RevokeAllForUser(ctx, userID); err != nil {
		metrics.ObserveAuth("changepwd", metrics.OutcomeError)
		return nil, err
	}

	log.Info("Password changed, all refresh tokens revoked")
	metrics.ObserveAuth("changepwd", metrics.OutcomeSuccess)
	return &model.MessageResponse{Message: MsgPasswordChanged}, nil
}

func (s *AuthService) activeUser(ctx context.Context, userID int) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("could not look up user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func hashOutcome(err error) string {
	if errors.Is(err, ErrPasswordTooLong) {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}

func (s *AuthService) denied(operation string, log *logrus.Entry, cause string) error {
	log.WithField("cause", cause).Warn("Authentication failed")
	metrics.ObserveAuth(operation, metrics.OutcomeInvalidCredentials)
	return ErrInvalidCredentials
}

// verifyDummy spends one password verification so that an unknown username
// costs about as much as a wrong password.
func (s *AuthService) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.passwords.Hash("dummy-password-for-unknown-users")
		if err != nil {
			logger.Log.WithError(err).Warn("Could not prepare dummy password hash")
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		s.passwords.Verify(password, s.dummyHash)
	}
}
