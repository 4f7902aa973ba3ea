package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"cocity-api/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock
}

var userRowColumns = []string{"id", "username", "password_hash", "is_active", "created_at", "last_login_at", "register_ip"}

func TestUserRepository_GetByName(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(7, "alice", "hash", true, now, now, "10.0.0.1"))

		user, err := repo.GetByName(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 7, user.ID)
		assert.Equal(t, "hash", user.PasswordHash)
		assert.Equal(t, "10.0.0.1", user.RegisterIP)
		assert.True(t, user.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
			WithArgs("bob").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByName(ctx, "bob")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
			WithArgs("carol").
			WillReturnError(errors.New("connection reset"))

		_, err := repo.GetByName(ctx, "carol")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestUserRepository_GetByID(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(3, "dave", "h", false, now, now, ""))

	user, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "dave", user.Username)
	assert.False(t, user.IsActive)
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		created := time.Now()
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("alice", "hash", true, "127.0.0.1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "last_login_at"}).AddRow(1, created, created))

		user := &model.User{Username: "alice", PasswordHash: "hash", IsActive: true, RegisterIP: "127.0.0.1"}
		require.NoError(t, repo.Create(ctx, user))
		assert.Equal(t, 1, user.ID)
		assert.Equal(t, created, user.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

		err := repo.Create(ctx, &model.User{Username: "alice", PasswordHash: "hash"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: 5, PasswordHash: "new", IsActive: true, LastLoginAt: time.Now()}

	t.Run("success", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		mock.ExpectExec(`UPDATE users SET password_hash = \$2, is_active = \$3 WHERE id = \$1`).
			WithArgs(5, "new", true).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Update(ctx, user))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Update(ctx, user), ErrNotFound)
	})
}

func TestUserRepository_UpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	repo, mock := newUserRepoWithMock(t)
	mock.ExpectExec(`UPDATE users SET last_login_at = \$2 WHERE id = \$1$`).
		WithArgs(5, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.UpdateLastLogin(ctx, 5, at))
	assert.NoError(t, mock.ExpectationsWereMet())

	repo, mock = newUserRepoWithMock(t)
	mock.ExpectExec(`UPDATE users SET last_login_at`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateLastLogin(ctx, 99, at), ErrNotFound)
}
