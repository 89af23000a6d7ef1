package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/highscore-service/internal/domain"
	"github.com/spec-kit/highscore-service/internal/persistence"
)

const profileCacheTTL = 5 * time.Minute

// ProfileCache caches profile reads keyed by user id. Writers install the
// fresh value with SetProfile; readers repopulate with SetProfileIfAbsent
// only, so a read that raced a score update can never overwrite the entry
// the update installed. That keeps per-user read-your-writes intact.
type ProfileCache interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	SetProfile(ctx context.Context, user *domain.User) error
	SetProfileIfAbsent(ctx context.Context, user *domain.User) error
	DeleteProfile(ctx context.Context, userID string) error
}

type cachedProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	HighScore int64  `json:"highScore"`
}

type redisProfileCache struct {
	client *redis.Client
}

// NewProfileCache returns a Redis-backed cache.
func NewProfileCache(r *persistence.Redis) ProfileCache {
	return &redisProfileCache{client: r.Client}
}

func cacheKey(userID string) string {
	return "profile:" + userID
}

// GetProfile returns nil without error on a cache miss.
func (c *redisProfileCache) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	raw, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var cached cachedProfile
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, err
	}
	return &domain.User{
		ID:        cached.ID,
		Username:  cached.Username,
		HighScore: cached.HighScore,
	}, nil
}

func (c *redisProfileCache) SetProfile(ctx context.Context, user *domain.User) error {
	raw, err := marshalProfile(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(user.ID), raw, profileCacheTTL).Err()
}

func (c *redisProfileCache) SetProfileIfAbsent(ctx context.Context, user *domain.User) error {
	raw, err := marshalProfile(user)
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, cacheKey(user.ID), raw, profileCacheTTL).Err()
}

func marshalProfile(user *domain.User) ([]byte, error) {
	return json.Marshal(cachedProfile{
		ID:        user.ID,
		Username:  user.Username,
		HighScore: user.HighScore,
	})
}

func (c *redisProfileCache) DeleteProfile(ctx context.Context, userID string) error {
	return c.client.Del(ctx, cacheKey(userID)).Err()
}
