package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cocity-api/logger"
	"cocity-api/model"
)

// IProfileRepository persists user profiles, at most one per user.
type IProfileRepository interface {
	GetByUserID(ctx context.Context, userID int) (*model.UserProfile, error)
	// Upsert inserts or replaces the profile of profile.UserID. A missing
	// user yields ErrNotFound.
	Upsert(ctx context.Context, profile *model.UserProfile) error
}

type ProfileRepository struct {
	DB *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int) (*model.UserProfile, error) {
	query := `SELECT user_id, nick_name, avatar_url, bio, gender, birthday, updated_at
		FROM user_profiles WHERE user_id = $1`

	var (
		p                   model.UserProfile
		avatar, bio, gender sql.NullString
		birthday            sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.NickName, &avatar, &bio, &gender, &birthday, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to execute get profile query")
		return nil, fmt.Errorf("db error: %w", err)
	}

	p.AvatarURL = nullString(avatar)
	p.Bio = nullString(bio)
	p.Gender = nullString(gender)
	if birthday.Valid {
		b := birthday.Time
		p.Birthday = &b
	}
	return &p, nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, profile *model.UserProfile) error {
	log := logger.Log.WithField("user_id", profile.UserID)
	log.Info("Executing query to upsert user profile")

	query := `INSERT INTO user_profiles (user_id, nick_name, avatar_url, bio, gender, birthday)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			nick_name = EXCLUDED.nick_name,
			avatar_url = EXCLUDED.avatar_url,
			bio = EXCLUDED.bio,
			gender = EXCLUDED.gender,
			birthday = EXCLUDED.birthday,
			updated_at = NOW()
		RETURNING updated_at`

	var birthday interface{}
	if profile.Birthday != nil {
		birthday = *profile.Birthday
	}
	err := r.DB.QueryRowContext(ctx, query,
		profile.UserID, profile.NickName,
		nullable(profile.AvatarURL), nullable(profile.Bio), nullable(profile.Gender), birthday,
	).Scan(&profile.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			log.Warn("Profile owner does not exist")
			return ErrNotFound
		}
		log.WithError(err).Error("Failed to execute upsert profile query")
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
