package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/advocacia-ai/painel/internal/model"
)

const statsKeyPrefix = "stats:owner:"

// ErrCacheMiss is returned when a key is absent or unreadable.
var ErrCacheMiss = errors.New("cache miss")

// GetStats retrieves cached dashboard stats for an owner.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetStats(ctx context.Context, ownerID string) (*model.DashboardStats, error) {
	data, err := c.client.Get(ctx, statsKeyPrefix+ownerID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var stats model.DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		// Corrupted entry - treat as miss
		return nil, ErrCacheMiss
	}

	return &stats, nil
}

// SetStats caches dashboard stats for an owner.
func (c *Cache) SetStats(ctx context.Context, ownerID string, stats *model.DashboardStats, ttl time.Duration) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	return c.client.Set(ctx, statsKeyPrefix+ownerID, data, ttl).Err()
}

// InvalidateStats drops cached stats after the owner's pipeline changes.
func (c *Cache) InvalidateStats(ctx context.Context, ownerID string) error {
	return c.client.Del(ctx, statsKeyPrefix+ownerID).Err()
}
