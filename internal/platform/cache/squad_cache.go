package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fcsquad/optimizer/internal/roster"
)

// SquadCacheService caches solved squads keyed by a hash of the request
// that produced them, so identical requests within the TTL window skip
// the branch-and-bound search entirely.
type SquadCacheService struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewSquadCacheService(client *redis.Client, logger *logrus.Logger) *SquadCacheService {
	return &SquadCacheService{client: client, logger: logger}
}

func (c *SquadCacheService) SetSquadResult(ctx context.Context, key string, result *roster.SolveResponse, expiration time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal squad result: %w", err)
	}

	fullKey := fmt.Sprintf("squad:%s", key)
	if err := c.client.Set(ctx, fullKey, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set squad result in cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":      fullKey,
		"expiration":     expiration,
		"total_chemistry": result.TotalChemistry,
	}).Debug("cached squad solve result")

	return nil
}

func (c *SquadCacheService) GetSquadResult(ctx context.Context, key string) (*roster.SolveResponse, error) {
	fullKey := fmt.Sprintf("squad:%s", key)
	data, err := c.client.Get(ctx, fullKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get squad result from cache: %w", err)
	}

	var result roster.SolveResponse
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal squad result: %w", err)
	}

	c.logger.WithField("cache_key", fullKey).Debug("retrieved squad solve result from cache")
	return &result, nil
}

func (c *SquadCacheService) DeleteSquadResult(ctx context.Context, key string) error {
	fullKey := fmt.Sprintf("squad:%s", key)
	if err := c.client.Del(ctx, fullKey).Err(); err != nil {
		return fmt.Errorf("failed to delete squad result from cache: %w", err)
	}
	c.logger.WithField("cache_key", fullKey).Debug("deleted squad solve result from cache")
	return nil
}

// GetStatus returns cache statistics for the cache-status endpoint.
func (c *SquadCacheService) GetStatus(ctx context.Context) map[string]interface{} {
	dbSize := c.client.DBSize(ctx)
	memory := c.client.MemoryUsage(ctx, "")

	status := map[string]interface{}{
		"service":   "squad-cache",
		"timestamp": time.Now(),
		"connected": true,
	}
	if dbSize.Err() == nil {
		status["db_size"] = dbSize.Val()
	}
	if memory.Err() == nil {
		status["memory_usage"] = memory.Val()
	}

	squadKeys, err := c.client.Keys(ctx, "squad:*").Result()
	if err == nil {
		status["squad_keys"] = len(squadKeys)
	}

	return status
}

// FlushSquadCache clears all cached squad results.
func (c *SquadCacheService) FlushSquadCache(ctx context.Context) error {
	keys, err := c.client.Keys(ctx, "squad:*").Result()
	if err != nil {
		return fmt.Errorf("failed to get squad keys: %w", err)
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete squad keys: %w", err)
		}
	}
	c.logger.WithField("deleted_keys", len(keys)).Info("flushed squad cache")
	return nil
}
