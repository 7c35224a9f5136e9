package core

import (
	"context"
	"time"
)

// Cache is a key/value store for JSON-encodable values.
type Cache interface {
	// Get decodes the cached value into dst. It reports false on a miss.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type noopCache struct{}

// NoopCache never stores anything; every Get is a miss.
var NoopCache Cache = noopCache{}

func (noopCache) Get(context.Context, string, interface{}) (bool, error)       { return false, nil }
func (noopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, ...string) error                       { return nil }
