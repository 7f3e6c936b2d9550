// Package cache holds the optional Redis side channel: the game action queue
// consumed by offline tooling and the per-group presence map used by the relay.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"groupgames-service/internal/models"
)

// DefaultQueueName is the Redis list game action records are pushed to.
const DefaultQueueName = "group_games_actions"

const presenceTTL = 30 * time.Minute

// Cache wraps a Redis client. A nil *Cache is valid and does nothing, so Redis
// stays optional.
type Cache struct {
	rdb   *redis.Client
	queue string
}

// Connect dials Redis and verifies it with a ping. An empty addr disables the
// cache and returns nil.
func Connect(ctx context.Context, addr string, db int) (*Cache, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Cache{rdb: rdb, queue: DefaultQueueName}, nil
}

// PushGameAction serializes the record and appends it to the action queue.
func (c *Cache) PushGameAction(ctx context.Context, action models.GameAction) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal game action: %w", err)
	}
	if err := c.rdb.RPush(ctx, c.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", c.queue, err)
	}
	return nil
}

func presenceKey(groupID int) string {
	return "group:" + strconv.Itoa(groupID) + ":presence"
}

// SetPlayerStatus records the user's last announced status in the group.
func (c *Cache) SetPlayerStatus(ctx context.Context, groupID int, userID, status string) error {
	if c == nil {
		return nil
	}
	key := presenceKey(groupID)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, userID, status)
	pipe.Expire(ctx, key, presenceTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// ClearPlayerStatus drops the user from the group's presence map.
func (c *Cache) ClearPlayerStatus(ctx context.Context, groupID int, userID string) error {
	if c == nil {
		return nil
	}
	return c.rdb.HDel(ctx, presenceKey(groupID), userID).Err()
}

// GroupPresence returns user id -> status for the group.
func (c *Cache) GroupPresence(ctx context.Context, groupID int) (map[string]string, error) {
	if c == nil {
		return map[string]string{}, nil
	}
	return c.rdb.HGetAll(ctx, presenceKey(groupID)).Result()
}

// Close releases the client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
