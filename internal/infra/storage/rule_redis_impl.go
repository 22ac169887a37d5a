package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
	configs "go_mock_dispatch/internal/infra/config"
	"go_mock_dispatch/utils"

	"github.com/go-redis/redis/v8"
)

const defaultKeyPrefix = "mock_definition:" // Redis Key 前缀

// ErrCacheMiss is returned by caches for absent keys.
var ErrCacheMiss = errors.New("definition not in cache")

type redisDefinitionCacheImpl struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
}

// NewRedisClient connects and pings. Returns nil when redis is disabled.
func NewRedisClient(c *configs.MockConfig) (*redis.Client, error) {
	rc := c.RedisConfig
	if !rc.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         rc.Addr(),
		Password:     rc.Password,
		DB:           rc.Database,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		MaxRetries:   rc.MaxRetries,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
		PoolTimeout:  rc.PoolTimeout,
		IdleTimeout:  rc.IdleTimeout,
	})

	// 测试连接是否成功
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", rc.Addr(), err)
	}

	utils.GetLogger().Infof("connected to redis %s", rc.Addr())
	return client, nil
}

// NewDefinitionCache picks the redis cache when a client exists, otherwise a
// cache that always misses.
func NewDefinitionCache(redisClient *redis.Client, c *configs.MockConfig) DefinitionCacheIface {
	if redisClient == nil {
		return noopDefinitionCache{}
	}
	prefix := c.RedisConfig.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &redisDefinitionCacheImpl{
		redisClient: redisClient,
		keyPrefix:   prefix,
		ttl:         c.RedisConfig.TTL,
	}
}

var _ DefinitionCacheIface = (*redisDefinitionCacheImpl)(nil)

func (r *redisDefinitionCacheImpl) key(id string) string {
	return r.keyPrefix + id
}

func (r *redisDefinitionCacheImpl) SetDefinitionToCache(ctx context.Context, def *model.MockDefinition) error {
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal definition to JSON: %w", err)
	}
	if err := r.redisClient.Set(ctx, r.key(def.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set definition to redis: %w", err)
	}
	return nil
}

func (r *redisDefinitionCacheImpl) DeleteDefinitionFromCache(ctx context.Context, id string) error {
	if err := r.redisClient.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete definition from redis: %w", err)
	}
	return nil
}

func (r *redisDefinitionCacheImpl) GetDefinitionFromCache(ctx context.Context, id string) (*model.MockDefinition, error) {
	raw, err := r.redisClient.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) { // Redis 中 Key 不存在
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get definition from redis: %w", err)
	}

	def := &model.MockDefinition{}
	if err := json.Unmarshal(raw, def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition from JSON: %w", err)
	}
	def.Source = model.SourcePersisted
	return def, nil
}

// noopDefinitionCache 未启用 Redis 时使用
type noopDefinitionCache struct{}

func (noopDefinitionCache) GetDefinitionFromCache(_ context.Context, id string) (*model.MockDefinition, error) {
	return nil, fmt.Errorf("%w: %s", ErrCacheMiss, id)
}

func (noopDefinitionCache) SetDefinitionToCache(context.Context, *model.MockDefinition) error {
	return nil
}

func (noopDefinitionCache) DeleteDefinitionFromCache(context.Context, string) error {
	return nil
}
