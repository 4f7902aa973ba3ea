package service

import (
	"context"
	"sync"
	"time"

	"cocity-api/model"
	"cocity-api/repository"

	"github.com/stretchr/testify/mock"
)

// mockUserRepo is a mock implementation of IUserRepository.
type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) GetByName(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

// mockProfileRepo is a mock implementation of IProfileRepository.
type mockProfileRepo struct{ mock.Mock }

func (m *mockProfileRepo) GetByUserID(ctx context.Context, userID int) (*model.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *mockProfileRepo) Upsert(ctx context.Context, profile *model.UserProfile) error {
	return m.Called(ctx, profile).Error(0)
}

// mockTokenRepo is a mock implementation of ITokenRepository.
type mockTokenRepo struct{ mock.Mock }

func (m *mockTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockTokenRepo) GetByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefreshToken), args.Error(1)
}

func (m *mockTokenRepo) Update(ctx context.Context, token *model.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockTokenRepo) RevokeAllForUser(ctx context.Context, userID int) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTokenRepo) Rotate(ctx context.Context, oldToken string, userID int, now time.Time, next *model.RefreshToken) error {
	return m.Called(ctx, oldToken, userID, now, next).Error(0)
}

// mockHasher is a mock implementation of PasswordHasher.
type mockHasher struct{ mock.Mock }

func (m *mockHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *mockHasher) Verify(password, hash string) bool {
	return m.Called(password, hash).Bool(0)
}

// mockIssuer is a mock implementation of AccessTokenIssuer.
type mockIssuer struct{ mock.Mock }

func (m *mockIssuer) IssueAccessToken(user *model.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

// mockRefresh is a mock implementation of RefreshTokenManager.
type mockRefresh struct{ mock.Mock }

func (m *mockRefresh) Issue(ctx context.Context, userID int) (*model.RefreshToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefreshToken), args.Error(1)
}

func (m *mockRefresh) Validate(ctx context.Context, token string, userID int) (bool, error) {
	args := m.Called(ctx, token, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRefresh) Rotate(ctx context.Context, oldToken string, userID int) (*model.RefreshToken, error) {
	args := m.Called(ctx, oldToken, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefreshToken), args.Error(1)
}

func (m *mockRefresh) Revoke(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockRefresh) RevokeToken(ctx context.Context, token *model.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockRefresh) RevokeAllForUser(ctx context.Context, userID int) error {
	return m.Called(ctx, userID).Error(0)
}

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memoryUserRepo is an in-memory IUserRepository with the same uniqueness
// and not-found behaviour as the postgres store.
type memoryUserRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*model.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{byID: make(map[int]*model.User)}
}

func (r *memoryUserRepo) GetByName(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *memoryUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	c := *user
	r.byID[user.ID] = &c
	return nil
}

func (r *memoryUserRepo) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = user.PasswordHash
	u.IsActive = user.IsActive
	return nil
}

func (r *memoryUserRepo) UpdateLastLogin(_ context.Context, id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLoginAt = at
	return nil
}
