package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
)

type redisCache struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ core.Cache = (*redisCache)(nil)

// NewRedisCache connects to the configured redis server. With no address configured, or when
// the server does not answer, the returned cache stores nothing.
func NewRedisCache(ctx context.Context, conf *core.Config, logger core.Logger) (core.Cache, func()) {
	if conf.Redis.Addr == "" {
		return core.NoopCache, func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, caching disabled", errors.Wrap(err, "pinging redis"))
		_ = rdb.Close()
		return core.NoopCache, func() {}
	}
	return NewCache(rdb, conf.AppName), func() { _ = rdb.Close() }
}

// NewCache wraps rdb; keys are namespaced with prefix.
func NewCache(rdb redis.UniversalClient, prefix string) core.Cache {
	return &redisCache{rdb: rdb, prefix: prefix}
}

func (c *redisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *redisCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "getting %s", key)
	}
	if err = json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrapf(err, "decoding %s", key)
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return errors.Wrapf(c.rdb.Set(ctx, c.key(key), data, ttl).Err(), "setting %s", key)
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.key(k))
	}
	return errors.Wrap(c.rdb.Del(ctx, full...).Err(), "deleting keys")
}
