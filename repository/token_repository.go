// file: repository/token_repository.go

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cocity-api/logger"
	"cocity-api/model"

	"github.com/sirupsen/logrus"
)

// ITokenRepository defines the contract for refresh token persistence.
// Records are never deleted; the only mutation is revoking them.
type ITokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	// GetByToken returns the unrevoked record for token, or ErrNotFound.
	GetByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	// Update persists the revoked flag of an existing record. A revoked
	// record is never un-revoked.
	Update(ctx context.Context, token *model.RefreshToken) error
	RevokeAllForUser(ctx context.Context, userID int) (int64, error)
	// Rotate revokes oldToken and stores next in one atomic step. It fails
	// with ErrTokenNotActive unless oldToken belongs to userID and is
	// unrevoked and unexpired at now, so at most one caller can rotate a
	// given value.
	Rotate(ctx context.Context, oldToken string, userID int, now time.Time, next *model.RefreshToken) error
}

// TokenRepository implements ITokenRepository on PostgreSQL.
type TokenRepository struct {
	DB *sql.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Create inserts a new refresh token record into the database.
func (r *TokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    token.UserID,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to create a new refresh token")

	if err := insertToken(ctx, r.DB, token); err != nil {
		if errors.Is(err, ErrDuplicate) {
			log.Warn("Refresh token value collision")
			return err
		}
		log.WithError(err).Error("Failed to execute create refresh token query")
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func insertToken(ctx context.Context, q queryRower, token *model.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (user_id, token, expires_at, revoked, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := q.QueryRowContext(ctx, query, token.UserID, token.Token, token.ExpiresAt, token.Revoked, token.CreatedAt).
		Scan(&token.ID)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByToken retrieves an unrevoked refresh token by its value.
func (r *TokenRepository) GetByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	log := logger.Log.WithField("token_fp", fingerprint(token))
	log.Debug("Executing query to get refresh token")

	rt := &model.RefreshToken{}
	query := `SELECT id, user_id, token, expires_at, revoked, created_at FROM refresh_tokens WHERE token = $1 AND revoked = FALSE`
	err := r.DB.QueryRowContext(ctx, query, token).
		Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.Revoked, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.WithError(err).Error("Failed to execute get refresh token query")
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rt, nil
}

// Update stores the revoked flag for token. The OR keeps revocation one-way.
func (r *TokenRepository) Update(ctx context.Context, token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"token_id": token.ID,
		"user_id":  token.UserID,
		"revoked":  token.Revoked,
	})
	log.Info("Executing query to update refresh token")

	query := `UPDATE refresh_tokens SET revoked = revoked OR $2 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, token.ID, token.Revoked)
	if err != nil {
		log.WithError(err).Error("Failed to execute update refresh token query")
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeAllForUser revokes every unrevoked token of userID and returns how
// many were flipped. The user row lock orders it against Rotate for the same
// user, so a rotation that commits first has its new token revoked here and
// a rotation that starts later finds its old token revoked.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID int) (int64, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to revoke all refresh tokens for a user")

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked int
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No user, so no tokens can reference it.
			return 0, nil
		}
		log.WithError(err).Error("Failed to lock user row")
		return 0, fmt.Errorf("db error: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke refresh tokens query")
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("could not commit transaction: %w", err)
	}
	log.WithField("revoked", n).Info("Refresh tokens revoked")
	return n, nil
}

// Rotate swaps oldToken for next. The conditional UPDATE is the
// serialization point: a concurrent rotation of the same value blocks on the
// row lock and then matches zero rows.
func (r *TokenRepository) Rotate(ctx context.Context, oldToken string, userID int, now time.Time, next *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":  userID,
		"token_fp": fingerprint(oldToken),
	})
	log.Info("Executing refresh token rotation")

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked int
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR SHARE`, userID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTokenNotActive
		}
		log.WithError(err).Error("Failed to lock user row")
		return fmt.Errorf("db error: %w", err)
	}

	query := `UPDATE refresh_tokens SET revoked = TRUE
		WHERE token = $1 AND user_id = $2 AND revoked = FALSE AND expires_at > $3`
	res, err := tx.ExecContext(ctx, query, oldToken, userID, now)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke refresh token query")
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		log.Warn("Refresh token not active at rotation time")
		return ErrTokenNotActive
	}

	if err := insertToken(ctx, tx, next); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return err
		}
		log.WithError(err).Error("Failed to insert rotated refresh token")
		return fmt.Errorf("db error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}
