package storage

import (
	"fmt"
	"log"
)

// Open 按后端名称创建快照存储与临时查询缓存。
// postgres 后端优先使用 redis 作为查询缓存，redis 不可用时退回进程内缓存。
func Open(backend, postgresDSN, redisAddr string) (Store, QueryCache, error) {
	switch backend {
	case "", "memory":
		m := NewMemoryStore()
		return m, m, nil
	case "redis":
		r, err := NewRedisStore(redisAddr)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	case "postgres":
		p, err := NewPostgresStore(postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		var cache QueryCache
		if redisAddr != "" {
			r, err := NewRedisStore(redisAddr)
			if err != nil {
				log.Printf("warn: redis cache disabled: %v", err)
			} else {
				cache = r
			}
		}
		if cache == nil {
			cache = NewMemoryStore()
		}
		return p, cache, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
