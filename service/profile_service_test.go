package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cocity-api/model"
	"cocity-api/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newMockedProfileService() (*ProfileService, *mockUserRepo, *mockProfileRepo) {
	users := new(mockUserRepo)
	profiles := new(mockProfileRepo)
	return NewProfileService(users, profiles), users, profiles
}

func TestProfileService_GetProfile(t *testing.T) {
	ctx := context.Background()
	alice := &model.User{ID: 7, Username: "alice", IsActive: true}

	t.Run("stored profile", func(t *testing.T) {
		svc, users, profiles := newMockedProfileService()
		birthday := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
		users.On("GetByID", ctx, 7).Return(alice, nil).Once()
		profiles.On("GetByUserID", ctx, 7).Return(&model.UserProfile{
			UserID: 7, NickName: "Ally", Bio: strPtr("hi"), Birthday: &birthday,
		}, nil).Once()

		resp, err := svc.GetProfile(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, &model.ProfileResponse{
			UserID:   "7",
			Username: "alice",
			NickName: "Ally",
			Bio:      strPtr("hi"),
			Birthday: strPtr("1990-05-17"),
		}, resp)
		users.AssertExpectations(t)
		profiles.AssertExpectations(t)
	})

	t.Run("never saved defaults to username", func(t *testing.T) {
		svc, users, profiles := newMockedProfileService()
		users.On("GetByID", ctx, 7).Return(alice, nil).Once()
		profiles.On("GetByUserID", ctx, 7).Return(nil, repository.ErrNotFound).Once()

		resp, err := svc.GetProfile(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "alice", resp.NickName)
		assert.Nil(t, resp.Birthday)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, users, _ := newMockedProfileService()
		users.On("GetByID", ctx, 8).Return(nil, repository.ErrNotFound).Once()

		_, err := svc.GetProfile(ctx, 8)
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, users, profiles := newMockedProfileService()
		boom := errors.New("db down")
		users.On("GetByID", ctx, 7).Return(alice, nil).Once()
		profiles.On("GetByUserID", ctx, 7).Return(nil, boom).Once()

		_, err := svc.GetProfile(ctx, 7)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrProfileNotFound)
	})
}

func TestProfileService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	alice := &model.User{ID: 7, Username: "alice", IsActive: true}

	t.Run("applies only present fields", func(t *testing.T) {
		svc, users, profiles := newMockedProfileService()
		users.On("GetByID", ctx, 7).Return(alice, nil).Once()
		profiles.On("GetByUserID", ctx, 7).Return(&model.UserProfile{
			UserID: 7, NickName: "Ally", Bio: strPtr("old bio"), Gender: strPtr("f"),
		}, nil).Once()
		profiles.On("Upsert", ctx, mock.MatchedBy(func(p *model.UserProfile) bool {
			return p.UserID == 7 &&
				p.NickName == "Ally" &&
				*p.Bio == "new bio" &&
				*p.Gender == "f" &&
				p.AvatarURL == nil &&
				p.Birthday.Equal(time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC))
		})).Return(nil).Once()

		resp, err := svc.UpdateProfile(ctx, 7, &model.UpdateProfileRequest{
			Bio:      strPtr("new bio"),
			Birthday: strPtr("2001-02-03"),
		})
		require.NoError(t, err)
		assert.Equal(t, MsgProfileUpdated, resp.Message)
		users.AssertExpectations(t)
		profiles.AssertExpectations(t)
	})

	t.Run("first save starts from defaults", func(t *testing.T) {
		svc, users, profiles := newMockedProfileService()
		users.On("GetByID", ctx, 7).Return(alice, nil).Once()
		profiles.On("GetByUserID", ctx, 7).Return(nil, repository.ErrNotFound).Once()
		profiles.On("Upsert", ctx, mock.MatchedBy(func(p *model.UserProfile) bool {
			return p.NickName == "alice" && *p.AvatarURL == "https://img.example/a.png"
		})).Return(nil).Once()

		_, err := svc.UpdateProfile(ctx, 7, &model.UpdateProfileRequest{AvatarURL: strPtr("https://img.example/a.png")})
		require.NoError(t, err)
		profiles.AssertExpectations(t)
	})

	t.Run("bad birthday", func(t *testing.T) {
		for _, b := range []string{"17/05/1990", "1990-13-01", "1990-02-30", ""} {
			svc, users, profiles := newMockedProfileService()
			_, err := svc.UpdateProfile(ctx, 7, &model.UpdateProfileRequest{Birthday: strPtr(b)})
			assert.ErrorIs(t, err, ErrInvalidBirthday, "birthday %q", b)
			users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
			profiles.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		}
	})

	t.Run("user deleted before save", func(t *testing.T) {
		svc, users, profiles := newMockedProfileService()
		users.On("GetByID", ctx, 7).Return(alice, nil).Once()
		profiles.On("GetByUserID", ctx, 7).Return(nil, repository.ErrNotFound).Once()
		profiles.On("Upsert", ctx, mock.Anything).Return(repository.ErrNotFound).Once()

		_, err := svc.UpdateProfile(ctx, 7, &model.UpdateProfileRequest{NickName: strPtr("x")})
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})
}
