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

// IUserRepository defines the contract for user persistence. Username
// uniqueness is enforced here, not by callers.
type IUserRepository interface {
	GetByName(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id int) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	// Update writes the password hash and active flag.
	Update(ctx context.Context, user *model.User) error
	// UpdateLastLogin stamps last_login_at and touches nothing else, so it
	// cannot overwrite a password changed since the row was read.
	UpdateLastLogin(ctx context.Context, id int, at time.Time) error
}

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, username, password_hash, is_active, created_at, last_login_at, COALESCE(register_ip, '')`

// GetByName looks a user up by exact, case-sensitive username.
func (r *UserRepository) GetByName(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.getOne(ctx, logger.Log.WithField("username", username), query, username)
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, logger.Log.WithField("user_id", id), query, id)
}

func (r *UserRepository) getOne(ctx context.Context, log *logrus.Entry, query string, arg interface{}) (*model.User, error) {
	user := &model.User{}
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.IsActive,
		&user.CreatedAt, &user.LastLoginAt, &user.RegisterIP,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.WithError(err).Error("Failed to execute get user query")
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// Create inserts user and fills in the generated id and timestamps. A
// username collision yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	log := logger.Log.WithField("username", user.Username)
	log.Info("Executing query to create a new user")

	query := `INSERT INTO users (username, password_hash, is_active, register_ip)
		VALUES ($1, $2, $3, NULLIF($4, '')) RETURNING id, created_at, last_login_at`
	err := r.DB.QueryRowContext(ctx, query, user.Username, user.PasswordHash, user.IsActive, user.RegisterIP).
		Scan(&user.ID, &user.CreatedAt, &user.LastLoginAt)
	if err != nil {
		if isUniqueViolation(err) {
			log.Warn("Username already taken")
			return ErrDuplicate
		}
		log.WithError(err).Error("Failed to execute create user query")
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update writes the password hash and active flag of user.
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	log := logger.Log.WithField("user_id", user.ID)
	log.Info("Executing query to update user")

	query := `UPDATE users SET password_hash = $2, is_active = $3 WHERE id = $1`
	return r.execOne(ctx, log, query, user.ID, user.PasswordHash, user.IsActive)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	log := logger.Log.WithField("user_id", id)
	log.Debug("Executing query to stamp last login")

	return r.execOne(ctx, log, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
}

func (r *UserRepository) execOne(ctx context.Context, log *logrus.Entry, query string, args ...interface{}) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute update user query")
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
