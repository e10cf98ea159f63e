package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss 缓存中没有对应的成绩
var ErrCacheMiss = errors.New("result not cached")

// ResultCache 成绩的尽力而为副本，数据库读取失败时作为兜底
type ResultCache interface {
	Put(ctx context.Context, rec *repository.ResultRecord) error
	Get(ctx context.Context, kind model.ContentType, resultID string) (*repository.ResultRecord, error)
	SetTTL(ttl time.Duration)
}

type RedisResultCache struct {
	Redis *redis.Client
	ttl   atomic.Int64
}

func NewRedisResultCache(rdb *redis.Client, ttl time.Duration) *RedisResultCache {
	c := &RedisResultCache{Redis: rdb}
	c.SetTTL(ttl)
	return c
}

func resultKey(kind model.ContentType, resultID string) string {
	return fmt.Sprintf("result:%s:%s", kind, resultID)
}

func (c *RedisResultCache) SetTTL(ttl time.Duration) {
	c.ttl.Store(int64(ttl))
}

func (c *RedisResultCache) Put(ctx context.Context, rec *repository.ResultRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, resultKey(rec.Kind, rec.ID), payload, time.Duration(c.ttl.Load())).Err()
}

func (c *RedisResultCache) Get(ctx context.Context, kind model.ContentType, resultID string) (*repository.ResultRecord, error) {
	val, err := c.Redis.Get(ctx, resultKey(kind, resultID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var rec repository.ResultRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// NoopResultCache Redis 未启用时使用
type NoopResultCache struct{}

func (NoopResultCache) Put(context.Context, *repository.ResultRecord) error { return nil }

func (NoopResultCache) Get(context.Context, model.ContentType, string) (*repository.ResultRecord, error) {
	return nil, ErrCacheMiss
}

func (NoopResultCache) SetTTL(time.Duration) {}
