package processor

import (
	"sort"

	"github.com/LJTian/FinNewsHub/internal/collector"
)

// SortByPublishedDesc 按发布时间倒序稳定排序（原地）。
// 发布时间是固定宽度字符串，直接按字典序比较。
func SortByPublishedDesc(items []collector.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt > items[j].PublishedAt
	})
}
