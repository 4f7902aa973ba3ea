package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"time"

	"cocity-api/config"
	"cocity-api/logger"
	"cocity-api/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour

	refreshTokenBytes = 32
)

// TokenService signs and checks access tokens and generates refresh token
// values. It holds only immutable configuration.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	clock    Clock
	parser   *jwt.Parser
}

// NewTokenService fails with a *config.ConfigurationError when the secret,
// issuer or audience is missing.
func NewTokenService(cfg config.JWTConfig, clock Clock) (*TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &TokenService{
		secret:   []byte(cfg.SecretKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		clock:    clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(clock.Now),
		),
	}, nil
}

// IssueAccessToken signs an HS256 token for user valid for AccessTokenTTL.
func (s *TokenService) IssueAccessToken(user *model.User) (string, error) {
	now := s.clock.Now()
	claims := &model.AppClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Error("Failed to sign JWT")
		return "", fmt.Errorf("failed to sign token string: %w", err)
	}
	return tokenString, nil
}

// ParseAccessToken verifies signature, issuer, audience and expiry with no
// clock skew allowance and returns the claims.
func (s *TokenService) ParseAccessToken(tokenString string) (*model.AppClaims, error) {
	claims := &model.AppClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}

// ValidateAccessToken reports whether tokenString is currently valid.
func (s *TokenService) ValidateAccessToken(tokenString string) bool {
	if _, err := s.ParseAccessToken(tokenString); err != nil {
		logger.Log.WithFields(logrus.Fields{"reason": err.Error()}).Debug("Access token rejected")
		return false
	}
	return true
}

// GenerateRefreshTokenValue returns 256 random bits, base64url encoded.
func (s *TokenService) GenerateRefreshTokenValue() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		logger.Log.WithError(err).Error("Failed to read random bytes for refresh token")
		return "", fmt.Errorf("could not generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
