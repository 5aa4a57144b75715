package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-management-api/internal/domain/user"
)

// UserCache stores single user records by ID.
type UserCache interface {
	// Get returns (nil, nil) on a cache miss.
	Get(ctx context.Context, id string) (*domain.User, error)
	Set(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
}

// cachedUser is the JSON shape written to Redis.
type cachedUser struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"passwordHash"`
	CreatedDate  time.Time `json:"createdDate"`
	UpdatedDate  time.Time `json:"updatedDate"`
}

// RedisUserCache implements UserCache on Redis.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserCache creates a new Redis-backed user cache.
func NewRedisUserCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisUserCache {
	return &RedisUserCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Key returns the Redis key holding user id.
func Key(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func (c *RedisUserCache) Get(ctx context.Context, id string) (*domain.User, error) {
	data, err := c.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("cache miss", zap.String("user_id", id))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached user: %w", err)
	}

	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		// a corrupt entry is dropped and treated as a miss
		c.log.Warn("discarding unreadable cache entry", zap.String("user_id", id), zap.Error(err))
		_ = c.client.Del(ctx, Key(id)).Err()
		return nil, nil
	}

	c.log.Debug("cache hit", zap.String("user_id", id))
	return &domain.User{
		ID:           cu.ID,
		FirstName:    cu.FirstName,
		LastName:     cu.LastName,
		Email:        cu.Email,
		Phone:        cu.Phone,
		PasswordHash: cu.PasswordHash,
		CreatedDate:  cu.CreatedDate,
		UpdatedDate:  cu.UpdatedDate,
	}, nil
}

func (c *RedisUserCache) Set(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("cannot cache nil user")
	}

	data, err := json.Marshal(cachedUser{
		ID:           user.ID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Email:        user.Email,
		Phone:        user.Phone,
		PasswordHash: user.PasswordHash,
		CreatedDate:  user.CreatedDate,
		UpdatedDate:  user.UpdatedDate,
	})
	if err != nil {
		return fmt.Errorf("failed to encode user for cache: %w", err)
	}

	if err := c.client.Set(ctx, Key(user.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}
	return nil
}

func (c *RedisUserCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("failed to evict cached user: %w", err)
	}
	return nil
}
