package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "news:snapshot:current"

// RedisStore 以 JSON 保存当前快照。快照不设过期时间，只会被下一次 Save 覆盖；
// 过期时间只用于临时查询缓存。
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: rdb}, nil
}

func (r *RedisStore) Save(ctx context.Context, s Snapshot) error {
	bs, err := json.Marshal(cloneSnapshot(s))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return r.client.Set(ctx, snapshotKey, bs, 0).Err()
}

func (r *RedisStore) Current(ctx context.Context) (Snapshot, error) {
	bs, err := r.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := json.Unmarshal(bs, &s); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return cloneSnapshot(s), nil
}

func (r *RedisStore) GetQuery(ctx context.Context, key string) (Snapshot, bool) {
	bs, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return Snapshot{}, false
	}
	var s Snapshot
	if err := json.Unmarshal(bs, &s); err != nil {
		return Snapshot{}, false
	}
	return s, true
}

// PutQuery 写缓存失败只记录日志，不影响请求
func (r *RedisStore) PutQuery(ctx context.Context, key string, s Snapshot, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	bs, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, bs, ttl).Err(); err != nil {
		log.Printf("warn: cache query %s: %v", key, err)
	}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
