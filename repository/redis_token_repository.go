// file: repository/redis_token_repository.go

package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cocity-api/logger"
	"cocity-api/model"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	redisTokenPrefix = "refresh_token:"
	redisUserPrefix  = "refresh_token_user:"
	redisSeqKey      = "refresh_token_seq"
)

// Script results below zero are failures; anything else is the record id.
const (
	scriptNotActive int64 = -1
	scriptDuplicate int64 = -2
)

// KEYS: token, user index, sequence. ARGV: user_id, expires_at, created_at, token.
const createTokenScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return -2
end
local id = redis.call("INCR", KEYS[3])
redis.call("HSET", KEYS[1], "id", id, "user_id", ARGV[1], "expires_at", ARGV[2], "revoked", "0", "created_at", ARGV[3])
redis.call("SADD", KEYS[2], ARGV[4])
return id
`

// KEYS: old token, new token, user index, sequence.
// ARGV: user_id, now, new expires_at, new created_at, new token.
const rotateTokenScript = `
local old = redis.call("HMGET", KEYS[1], "user_id", "revoked", "expires_at")
if not old[1] or old[1] ~= ARGV[1] or old[2] ~= "0" or tonumber(old[3]) <= tonumber(ARGV[2]) then
  return -1
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return -2
end
redis.call("HSET", KEYS[1], "revoked", "1")
local id = redis.call("INCR", KEYS[4])
redis.call("HSET", KEYS[2], "id", id, "user_id", ARGV[1], "expires_at", ARGV[3], "revoked", "0", "created_at", ARGV[4])
redis.call("SADD", KEYS[3], ARGV[5])
return id
`

// KEYS: user index. ARGV: token key prefix.
// Token keys are derived from the index and not declared.
const revokeAllScript = `
local n = 0
for _, tok in ipairs(redis.call("SMEMBERS", KEYS[1])) do
  local key = ARGV[1] .. tok
  if redis.call("HGET", key, "revoked") == "0" then
    redis.call("HSET", key, "revoked", "1")
    n = n + 1
  end
end
return n
`

// KEYS: token. ARGV: "1" to revoke.
const updateTokenScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if ARGV[1] == "1" then
  redis.call("HSET", KEYS[1], "revoked", "1")
end
return 1
`

var (
	createTokenLua = redis.NewScript(createTokenScript)
	rotateTokenLua = redis.NewScript(rotateTokenScript)
	revokeAllLua   = redis.NewScript(revokeAllScript)
	updateTokenLua = redis.NewScript(updateTokenScript)
)

// RedisTokenRepository implements ITokenRepository on Redis. Each record is
// a hash keyed by the token value, with a per-user set indexing the values.
// Keys carry no TTL: records stay for audit like the SQL rows do.
//
// The scripts touch several keys of different hash slots in one call, and
// revokeAllScript reaches keys it does not declare, so the store needs a
// single-node client rather than a cluster one.
type RedisTokenRepository struct {
	client *redis.Client
}

func NewRedisTokenRepository(client *redis.Client) *RedisTokenRepository {
	return &RedisTokenRepository{client: client}
}

func tokenKey(token string) string { return redisTokenPrefix + token }

func userKey(userID int) string { return redisUserPrefix + strconv.Itoa(userID) }

func (r *RedisTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    token.UserID,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Storing a new refresh token in redis")

	id, err := createTokenLua.Run(ctx, r.client,
		[]string{tokenKey(token.Token), userKey(token.UserID), redisSeqKey},
		token.UserID, token.ExpiresAt.UnixMilli(), token.CreatedAt.UnixMilli(), token.Token,
	).Int64()
	if err != nil {
		log.WithError(err).Error("Failed to run create refresh token script")
		return fmt.Errorf("redis error: %w", err)
	}
	if id == scriptDuplicate {
		log.Warn("Refresh token value collision")
		return ErrDuplicate
	}
	token.ID = int(id)
	return nil
}

func (r *RedisTokenRepository) GetByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	fields, err := r.client.HGetAll(ctx, tokenKey(token)).Result()
	if err != nil {
		logger.Log.WithField("token_fp", fingerprint(token)).WithError(err).Error("Failed to read refresh token from redis")
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	rt, err := decodeToken(token, fields)
	if err != nil {
		return nil, err
	}
	if rt.Revoked {
		return nil, ErrNotFound
	}
	return rt, nil
}

func (r *RedisTokenRepository) Update(ctx context.Context, token *model.RefreshToken) error {
	revoke := "0"
	if token.Revoked {
		revoke = "1"
	}
	found, err := updateTokenLua.Run(ctx, r.client, []string{tokenKey(token.Token)}, revoke).Int64()
	if err != nil {
		logger.Log.WithField("token_id", token.ID).WithError(err).Error("Failed to run update refresh token script")
		return fmt.Errorf("redis error: %w", err)
	}
	if found == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisTokenRepository) RevokeAllForUser(ctx context.Context, userID int) (int64, error) {
	log := logger.Log.WithField("user_id", userID)

	n, err := revokeAllLua.Run(ctx, r.client, []string{userKey(userID)}, redisTokenPrefix).Int64()
	if err != nil {
		log.WithError(err).Error("Failed to run revoke all script")
		return 0, fmt.Errorf("redis error: %w", err)
	}
	log.WithField("revoked", n).Info("Refresh tokens revoked")
	return n, nil
}

func (r *RedisTokenRepository) Rotate(ctx context.Context, oldToken string, userID int, now time.Time, next *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":  userID,
		"token_fp": fingerprint(oldToken),
	})

	id, err := rotateTokenLua.Run(ctx, r.client,
		[]string{tokenKey(oldToken), tokenKey(next.Token), userKey(userID), redisSeqKey},
		userID, now.UnixMilli(), next.ExpiresAt.UnixMilli(), next.CreatedAt.UnixMilli(), next.Token,
	).Int64()
	if err != nil {
		log.WithError(err).Error("Failed to run rotate refresh token script")
		return fmt.Errorf("redis error: %w", err)
	}

	switch id {
	case scriptNotActive:
		log.Warn("Refresh token not active at rotation time")
		return ErrTokenNotActive
	case scriptDuplicate:
		return ErrDuplicate
	}
	next.ID = int(id)
	return nil
}

func decodeToken(token string, fields map[string]string) (*model.RefreshToken, error) {
	id, err1 := strconv.Atoi(fields["id"])
	userID, err2 := strconv.Atoi(fields["user_id"])
	expires, err3 := strconv.ParseInt(fields["expires_at"], 10, 64)
	created, err4 := strconv.ParseInt(fields["created_at"], 10, 64)
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}

	return &model.RefreshToken{
		ID:        id,
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.UnixMilli(expires).UTC(),
		Revoked:   fields["revoked"] == "1",
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}
