package collector

import "context"

// Item 统一采集后的基础结构，字段值即身份
type Item struct {
	Source string `json:"source"`
	Title  string `json:"title"`
	// 摘要长度由各采集器控制（cleanSummary / truncateRunes）
	Summary     string `json:"summary"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	FetchedAt   string `json:"fetched_at"`
}

// Fetcher 抽象每一个数据源。
// targetDate 为空表示不按日期过滤，否则格式为 2006-01-02。
// 传输与重试由实现自身负责，ctx 取消后应尽快返回。
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, targetDate string) ([]Item, error)
}
