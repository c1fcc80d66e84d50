package localstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "easypeasy:device:"

type RedisDevices struct {
	rdb    *goredis.Client
	prefix string
}

func NewRedisDevices(ctx context.Context, addr string, prefix string) (*RedisDevices, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultRedisKeyPrefix
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisDevices{rdb: rdb, prefix: prefix}, nil
}

func (devices *RedisDevices) Device(deviceID string) (Store, error) {
	id, err := normalizeDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	return &redisStore{rdb: devices.rdb, key: devices.prefix + id}, nil
}

func (devices *RedisDevices) Close() error {
	if devices == nil || devices.rdb == nil {
		return nil
	}
	return devices.rdb.Close()
}

type redisStore struct {
	rdb *goredis.Client
	key string
}

func (store *redisStore) Get(ctx context.Context, field string) (string, bool, error) {
	value, err := store.rdb.HGet(ctx, store.key, field).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", field, err)
	}
	return value, true, nil
}

func (store *redisStore) Set(ctx context.Context, field string, value string) error {
	if err := store.rdb.HSet(ctx, store.key, field, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", field, err)
	}
	return nil
}

func (store *redisStore) Remove(ctx context.Context, field string) error {
	if err := store.rdb.HDel(ctx, store.key, field).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", field, err)
	}
	return nil
}
