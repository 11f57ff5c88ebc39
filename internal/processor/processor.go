// Package processor 对编排器合并后的条目做去重、关键词过滤与排序。
package processor

import (
	"github.com/LJTian/FinNewsHub/internal/collector"
)

// DedupKey 去重键：来源 + 标题 + 发布时间。
// 来源参与键值，不同来源转载的同一标题不会被合并。
func DedupKey(it collector.Item) string {
	return it.Source + "|" + it.Title + "|" + it.PublishedAt
}

// Deduplicator 持有一轮采集内的已见集合。
// 非并发安全：只在所有采集任务结束后由单个 goroutine 使用，每轮开始前须 Clear。
type Deduplicator struct {
	seen map[string]struct{}
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Deduplicate 单次遍历，保留每个键第一次出现的条目，输出保持输入顺序
func (d *Deduplicator) Deduplicate(items []collector.Item) []collector.Item {
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	out := make([]collector.Item, 0, len(items))
	for _, it := range items {
		key := DedupKey(it)
		if _, ok := d.seen[key]; ok {
			continue
		}
		d.seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Clear 清空已见集合
func (d *Deduplicator) Clear() {
	d.seen = make(map[string]struct{})
}

// Seen 返回当前已见键的数量
func (d *Deduplicator) Seen() int {
	return len(d.seen)
}
