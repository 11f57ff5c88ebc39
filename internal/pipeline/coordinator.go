// Package pipeline 串联一轮完整的采集：清空去重状态 → 并发采集 → 去重 → 关键词过滤 → 按时间倒序。
package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/LJTian/FinNewsHub/internal/collector"
	"github.com/LJTian/FinNewsHub/internal/metrics"
	"github.com/LJTian/FinNewsHub/internal/orchestrator"
	"github.com/LJTian/FinNewsHub/internal/processor"
)

// Result 一轮采集的快照。FailedSources 直接取自编排器，后续步骤不修改。
type Result struct {
	Items         []collector.Item
	FailedSources []string
	TotalSources  int
	Outcomes      []orchestrator.Outcome
	Elapsed       time.Duration
}

// AllFailed 报告是否所有数据源都失败（没有数据源时为 false）
func (r Result) AllFailed() bool {
	return r.TotalSources > 0 && len(r.FailedSources) >= r.TotalSources
}

type Coordinator struct {
	orch    *orchestrator.Orchestrator
	metrics *metrics.Metrics
}

// New 创建流水线；m 可为 nil
func New(orch *orchestrator.Orchestrator, m *metrics.Metrics) *Coordinator {
	if orch == nil {
		orch = orchestrator.NewDefault()
	}
	return &Coordinator{orch: orch, metrics: m}
}

// Run 执行一轮采集。每轮使用独立的去重器，并发调用 Run 互不影响。
// 单个数据源失败不会导致 Run 失败，只体现在 FailedSources 中。
func (c *Coordinator) Run(ctx context.Context, targetDate string, keywords []string, fetchers []collector.Fetcher) Result {
	start := time.Now()
	log.Printf("start crawl: date=%q keywords=%v sources=%d", targetDate, keywords, len(fetchers))

	dedup := processor.NewDeduplicator()
	dedup.Clear()

	fetched := c.orch.FetchAll(ctx, targetDate, fetchers)

	items := dedup.Deduplicate(fetched.Items)
	if len(keywords) > 0 {
		items = processor.FilterByKeywords(items, keywords)
	}
	processor.SortByPublishedDesc(items)

	res := Result{
		Items:         items,
		FailedSources: fetched.FailedSources,
		TotalSources:  len(fetchers),
		Outcomes:      fetched.Outcomes,
		Elapsed:       time.Since(start),
	}

	for _, o := range res.Outcomes {
		c.metrics.ObserveSource(o.Name, string(o.Cause), o.Elapsed)
	}
	c.metrics.ObserveRun(res.Elapsed)

	log.Printf("crawl done: fetched=%d unique=%d kept=%d failed=%v in %s",
		len(fetched.Items), dedup.Seen(), len(res.Items), res.FailedSources, res.Elapsed.Round(time.Millisecond))
	return res
}
