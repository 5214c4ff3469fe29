package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
)

type Client struct {
	rdb     *redis.Client
	lockTTL time.Duration
}

func NewClient(cfg *config.Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	})

	return &Client{rdb: rdb, lockTTL: cfg.AdmissionLockTTL}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func admissionKey(userID, eventID uint) string {
	return fmt.Sprintf("admission_lock:%d:%d", eventID, userID)
}

// LockAdmission claims the (user, event) admission slot. It reports false
// when another request from the same user is already being admitted.
func (c *Client) LockAdmission(ctx context.Context, userID, eventID uint) (bool, error) {
	result := c.rdb.SetNX(ctx, admissionKey(userID, eventID), time.Now().UnixNano(), c.lockTTL)
	if result.Err() != nil {
		return false, fmt.Errorf("failed to lock admission: %w", result.Err())
	}
	return result.Val(), nil
}

// UnlockAdmission releases the admission slot
func (c *Client) UnlockAdmission(ctx context.Context, userID, eventID uint) error {
	return c.rdb.Del(ctx, admissionKey(userID, eventID)).Err()
}

// Allow counts a hit against key in a fixed window and reports whether
// the caller is still within limit. The window is opened and counted in
// one MULTI so a key can never be left without a TTL.
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	key = "rate_limit:" + key

	var hits *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		hits = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to count request: %w", err)
	}
	return hits.Val() <= int64(limit), nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
