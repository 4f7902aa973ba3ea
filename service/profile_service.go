package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cocity-api/logger"
	"cocity-api/model"
	"cocity-api/repository"
)

const (
	MsgProfileUpdated = "Profile updated successfully"

	birthdayLayout = "2006-01-02"
)

// IProfileService is the set of profile use cases exposed to handlers.
type IProfileService interface {
	GetProfile(ctx context.Context, userID int) (*model.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID int, req *model.UpdateProfileRequest) (*model.MessageResponse, error)
}

// ProfileService reads and edits user profiles. A user who never saved a
// profile has an implicit one whose nickname is the username.
type ProfileService struct {
	users    repository.IUserRepository
	profiles repository.IProfileRepository
}

func NewProfileService(users repository.IUserRepository, profiles repository.IProfileRepository) *ProfileService {
	return &ProfileService{users: users, profiles: profiles}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID int) (*model.ProfileResponse, error) {
	user, profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(user, profile), nil
}

// UpdateProfile applies the fields present in req. A birthday that is not a
// YYYY-MM-DD date rejects the whole update with ErrInvalidBirthday.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID int, req *model.UpdateProfileRequest) (*model.MessageResponse, error) {
	log := logger.Log.WithField("user_id", userID)

	var birthday *time.Time
	if req.Birthday != nil {
		b, err := time.Parse(birthdayLayout, *req.Birthday)
		if err != nil {
			log.WithField("birthday", *req.Birthday).Warn("Profile update rejected, bad birthday")
			return nil, ErrInvalidBirthday
		}
		birthday = &b
	}

	_, profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.NickName != nil {
		profile.NickName = *req.NickName
	}
	if req.AvatarURL != nil {
		profile.AvatarURL = req.AvatarURL
	}
	if req.Bio != nil {
		profile.Bio = req.Bio
	}
	if req.Gender != nil {
		profile.Gender = req.Gender
	}
	if birthday != nil {
		profile.Birthday = birthday
	}

	if err := s.profiles.Upsert(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("could not save profile: %w", err)
	}

	log.Info("Profile updated")
	return &model.MessageResponse{Message: MsgProfileUpdated}, nil
}

func (s *ProfileService) load(ctx context.Context, userID int) (*model.User, *model.UserProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrProfileNotFound
		}
		return nil, nil, fmt.Errorf("could not look up user: %w", err)
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		return user, profile, nil
	case errors.Is(err, repository.ErrNotFound):
		return user, &model.UserProfile{UserID: user.ID, NickName: user.Username}, nil
	default:
		return nil, nil, fmt.Errorf("could not load profile: %w", err)
	}
}

func toProfileResponse(user *model.User, p *model.UserProfile) *model.ProfileResponse {
	resp := &model.ProfileResponse{
		UserID:    strconv.Itoa(user.ID),
		Username:  user.Username,
		NickName:  p.NickName,
		AvatarURL: p.AvatarURL,
		Bio:       p.Bio,
		Gender:    p.Gender,
	}
	if p.Birthday != nil {
		b := p.Birthday.Format(birthdayLayout)
		resp.Birthday = &b
	}
	return resp
}
