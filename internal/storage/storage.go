// Package storage 保存并提供最新一轮采集快照（只保留当前快照，不保留历史）。
package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/LJTian/FinNewsHub/internal/collector"
)

// ErrNoSnapshot 尚未保存过快照
var ErrNoSnapshot = errors.New("storage: no snapshot yet")

// Snapshot 对外提供的数据快照；UpdatedAt 由服务层在保存时写入
type Snapshot struct {
	Items         []collector.Item `json:"items"`
	FailedSources []string         `json:"failed_sources"`
	TotalSources  int              `json:"total_sources"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Store 当前快照的存取
type Store interface {
	Save(ctx context.Context, s Snapshot) error
	Current(ctx context.Context) (Snapshot, error)
	Close() error
}

// QueryCache 缓存按日期/关键词临时抓取的结果，减轻重复请求对数据源的压力
type QueryCache interface {
	GetQuery(ctx context.Context, key string) (Snapshot, bool)
	PutQuery(ctx context.Context, key string, s Snapshot, ttl time.Duration)
}

// QueryKey 由日期与关键词生成缓存键，关键词不区分大小写与顺序
func QueryKey(date string, keywords []string) string {
	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kws = append(kws, k)
		}
	}
	sort.Strings(kws)
	return "news:query:" + strings.TrimSpace(date) + ":" + strings.Join(kws, ",")
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := s
	out.Items = append([]collector.Item(nil), s.Items...)
	out.FailedSources = append([]string(nil), s.FailedSources...)
	if out.Items == nil {
		out.Items = []collector.Item{}
	}
	if out.FailedSources == nil {
		out.FailedSources = []string{}
	}
	return out
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误（部分源可能含 GBK/混编）
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度。
// 这是对上游采集器截断的双保险。
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
