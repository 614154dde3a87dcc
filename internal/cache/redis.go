package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/emrgen/revision/internal/model"
)

var _ VersionCache = (*RedisVersionCache)(nil)

type RedisVersionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisVersionCache(addr string) *RedisVersionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password set
		DB:       0,  // Use default DB
		Protocol: 2,  // Connection protocol
	})

	return &RedisVersionCache{client: client, ttl: 5 * time.Minute}
}

func (r *RedisVersionCache) GetLatest(ctx context.Context, scope model.Scope) (*model.ContentVersion, error) {
	res := r.client.Get(ctx, latestKey(scope))
	if res.Err() != nil {
		if errors.Is(res.Err(), redis.Nil) {
			return nil, nil
		}
		return nil, res.Err()
	}

	buf, err := res.Bytes()
	if err != nil {
		return nil, err
	}

	version := &model.ContentVersion{}
	if err := json.Unmarshal(buf, version); err != nil {
		return nil, err
	}

	return version, nil
}

func (r *RedisVersionCache) SetLatest(ctx context.Context, scope model.Scope, version *model.ContentVersion) error {
	marshal, err := json.Marshal(version)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, latestKey(scope), marshal, r.ttl).Err()
}

func (r *RedisVersionCache) Invalidate(ctx context.Context, scope model.Scope) error {
	return r.client.Del(ctx, latestKey(scope)).Err()
}
