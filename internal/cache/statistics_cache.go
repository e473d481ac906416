// Package cache хранит статистику в Redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"github.com/redis/go-redis/v9"
)

// KeyStatistics ключ снимка статистики
const KeyStatistics = "classroom:statistics"

// StatisticsCache кэширует model.Statistics в виде JSON
type StatisticsCache struct {
	client redis.UniversalClient
	key    string
}

func NewStatisticsCache(client redis.UniversalClient) *StatisticsCache {
	return &StatisticsCache{client: client, key: KeyStatistics}
}

// Get возвращает nil без ошибки при промахе
func (c *StatisticsCache) Get(ctx context.Context) (*model.Statistics, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get statistics: %w", err)
	}

	var stats model.Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decode statistics: %w", err)
	}

	return &stats, nil
}

// Set сохраняет снимок. ttl <= 0 означает не кэшировать.
func (c *StatisticsCache) Set(ctx context.Context, stats *model.Statistics, ttl time.Duration) error {
	if stats == nil || ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}

	if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set statistics: %w", err)
	}
	return nil
}

func (c *StatisticsCache) Delete(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("delete statistics: %w", err)
	}
	return nil
}
