package geo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tempizhere/linkpulse/internal/models"
	"go.uber.org/zap"
)

// DefaultCacheTTL - срок хранения результата поиска
const DefaultCacheTTL = 24 * time.Hour

// Cache хранит результаты поиска по адресу. Ошибки кеша считаются промахом.
type Cache interface {
	Get(ctx context.Context, addr string) (*models.GeoInfo, bool)
	Set(ctx context.Context, addr string, geo models.GeoInfo)
}

// RedisCache хранит результаты в Redis в виде JSON
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache создаёт кеш поверх клиента Redis
func NewRedisCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(addr string) string {
	return "geo:" + addr
}

// Get возвращает сохранённый результат
func (c *RedisCache) Get(ctx context.Context, addr string) (*models.GeoInfo, bool) {
	data, err := c.client.Get(ctx, cacheKey(addr)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("Geo cache read failed", zap.String("addr", addr), zap.Error(err))
		}
		return nil, false
	}
	var geo models.GeoInfo
	if err := json.Unmarshal(data, &geo); err != nil {
		c.logger.Debug("Geo cache entry is corrupted", zap.String("addr", addr), zap.Error(err))
		return nil, false
	}
	return &geo, true
}

// Set сохраняет результат на время ttl
func (c *RedisCache) Set(ctx context.Context, addr string, geo models.GeoInfo) {
	data, err := json.Marshal(geo)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(addr), data, c.ttl).Err(); err != nil {
		c.logger.Debug("Geo cache write failed", zap.String("addr", addr), zap.Error(err))
	}
}
