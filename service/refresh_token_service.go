package service

import (
	"context"
	"errors"
	"fmt"

	"cocity-api/logger"
	"cocity-api/model"
	"cocity-api/repository"

	"github.com/sirupsen/logrus"
)

// RefreshValueGenerator produces opaque refresh token values.
type RefreshValueGenerator interface {
	GenerateRefreshTokenValue() (string, error)
}

// RefreshTokenManager is the refresh token lifecycle used by AuthService.
type RefreshTokenManager interface {
	Issue(ctx context.Context, userID int) (*model.RefreshToken, error)
	Validate(ctx context.Context, token string, userID int) (bool, error)
	Rotate(ctx context.Context, oldToken string, userID int) (*model.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeToken(ctx context.Context, token *model.RefreshToken) error
	RevokeAllForUser(ctx context.Context, userID int) error
}

// RefreshTokenService manages refresh tokens on top of a token store.
// A token is active until it is rotated, revoked or reaches its expiry.
type RefreshTokenService struct {
	repo      repository.ITokenRepository
	generator RefreshValueGenerator
	clock     Clock
}

func NewRefreshTokenService(repo repository.ITokenRepository, generator RefreshValueGenerator, clock Clock) *RefreshTokenService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RefreshTokenService{repo: repo, generator: generator, clock: clock}
}

func (s *RefreshTokenService) newToken(userID int) (*model.RefreshToken, error) {
	value, err := s.generator.GenerateRefreshTokenValue()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return &model.RefreshToken{
		UserID:    userID,
		Token:     value,
		ExpiresAt: now.Add(RefreshTokenTTL),
		CreatedAt: now,
	}, nil
}

// Issue stores a new active token for userID.
func (s *RefreshTokenService) Issue(ctx context.Context, userID int) (*model.RefreshToken, error) {
	rt, err := s.newToken(userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("could not store refresh token: %w", err)
	}
	return rt, nil
}

// Validate reports whether token exists, belongs to userID, is unrevoked and
// has not expired. A missing token is not an error.
func (s *RefreshTokenService) Validate(ctx context.Context, token string, userID int) (bool, error) {
	if token == "" {
		return false, nil
	}

	rt, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("could not load refresh token: %w", err)
	}

	if rt.UserID != userID {
		logger.Log.WithFields(logrus.Fields{
			"user_id":  userID,
			"owner_id": rt.UserID,
		}).Warn("Refresh token presented by a different user")
		return false, nil
	}
	return rt.IsActive(s.clock.Now()), nil
}

// Rotate revokes oldToken and returns its replacement. Of several concurrent
// rotations of the same value exactly one succeeds; the others, and any
// rotation of a token that is no longer active, get ErrTokenNotActive.
func (s *RefreshTokenService) Rotate(ctx context.Context, oldToken string, userID int) (*model.RefreshToken, error) {
	next, err := s.newToken(userID)
	if err != nil {
		return nil, err
	}

	err = s.repo.Rotate(ctx, oldToken, userID, s.clock.Now(), next)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, repository.ErrTokenNotActive):
		return nil, ErrTokenNotActive
	default:
		return nil, fmt.Errorf("could not rotate refresh token: %w", err)
	}
}

// Revoke revokes the token with the given value. Unknown and already revoked
// tokens are ignored.
func (s *RefreshTokenService) Revoke(ctx context.Context, token string) error {
	rt, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("could not load refresh token: %w", err)
	}
	return s.RevokeToken(ctx, rt)
}

// RevokeToken revokes an already loaded record.
func (s *RefreshTokenService) RevokeToken(ctx context.Context, token *model.RefreshToken) error {
	token.Revoked = true
	if err := s.repo.Update(ctx, token); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("could not revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every active token of userID.
func (s *RefreshTokenService) RevokeAllForUser(ctx context.Context, userID int) error {
	if _, err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("could not revoke refresh tokens: %w", err)
	}
	return nil
}
