package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through cache. With a nil RDB it only collapses concurrent loads.
type Cache struct {
	RDB *redis.Client
	sf  singleflight.Group
	log *zap.Logger
}

// New connects to redis at addr. An empty addr yields a cache without storage.
func New(addr, pass string, db int, log *zap.Logger) *Cache {
	if addr == "" {
		return NewWithClient(nil, log)
	}
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), log)
}

func NewWithClient(rdb *redis.Client, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{RDB: rdb, log: log}
}

// GetOrLoad returns the cached bytes for key or loads, stores and returns them.
// Redis failures degrade to calling load; load failures are returned and not stored.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if c.RDB != nil {
		b, err := c.RDB.Get(ctx, key).Bytes()
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}
	}
	v, err, shared := c.sf.Do(key, func() (any, error) {
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if c.RDB != nil {
			if e := c.RDB.Set(ctx, key, b, ttl).Err(); e != nil {
				c.log.Debug("cache write failed", zap.String("key", key), zap.Error(e))
			}
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("cache load shared", zap.String("key", key))
	}
	return v.([]byte), nil
}

// DeletePrefix removes every key starting with prefix.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	if c.RDB == nil {
		return nil
	}
	iter := c.RDB.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.RDB.Del(ctx, keys...).Err()
}

func (c *Cache) Close() error {
	if c.RDB == nil {
		return nil
	}
	return c.RDB.Close()
}
