package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/LJTian/FinNewsHub/internal/collector"
	"github.com/LJTian/FinNewsHub/internal/metrics"
	"github.com/LJTian/FinNewsHub/internal/pipeline"
	"github.com/LJTian/FinNewsHub/internal/storage"
	"github.com/robfig/cron/v3"
)

// ErrBusy 上一轮采集尚未结束
var ErrBusy = errors.New("scheduler: crawl already running")

// 延迟执行首轮采集，避免与服务启动后的首批请求争抢资源
const startupDelay = 15 * time.Second

type Scheduler struct {
	cron     *cron.Cron
	pipeline *pipeline.Coordinator
	fetchers []collector.Fetcher
	store    storage.Store
	metrics  *metrics.Metrics

	running sync.Mutex
	now     func() time.Time
}

// New 创建调度器；m 可为 nil
func New(spec string, p *pipeline.Coordinator, fetchers []collector.Fetcher, store storage.Store, m *metrics.Metrics) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:     c,
		pipeline: p,
		fetchers: fetchers,
		store:    store,
		metrics:  m,
		now:      time.Now,
	}

	_, err := c.AddFunc(spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("add cron %q: %w", spec, err)
	}

	return s, nil
}

// Start 启动定时任务；startupCrawl 为 true 时延迟执行一轮首次采集
func (s *Scheduler) Start(startupCrawl bool) {
	s.cron.Start()
	if startupCrawl {
		time.AfterFunc(startupDelay, s.tick)
	}
}

// Stop 停止定时任务，返回的 context 在进行中的任务结束后关闭
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Fetchers 返回已注册的数据源
func (s *Scheduler) Fetchers() []collector.Fetcher {
	return s.fetchers
}

// RunOnce 以当天日期、不带关键词执行一轮采集并保存快照
func (s *Scheduler) RunOnce(ctx context.Context) (pipeline.Result, error) {
	return s.Crawl(ctx, collector.Today(s.now()), nil)
}

// Crawl 执行一轮采集并保存为当前快照。同一时刻只允许一轮，
// 已有采集在进行时返回 ErrBusy。所有数据源都失败时保留旧快照。
func (s *Scheduler) Crawl(ctx context.Context, targetDate string, keywords []string) (pipeline.Result, error) {
	if !s.running.TryLock() {
		return pipeline.Result{}, ErrBusy
	}
	defer s.running.Unlock()

	res := s.pipeline.Run(ctx, targetDate, keywords, s.fetchers)
	if res.AllFailed() {
		log.Printf("warn: all %d sources failed, keep previous snapshot", res.TotalSources)
		return res, nil
	}

	snap := storage.Snapshot{
		Items:         res.Items,
		FailedSources: res.FailedSources,
		TotalSources:  res.TotalSources,
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return res, fmt.Errorf("save snapshot: %w", err)
	}
	s.metrics.ObserveSnapshot(len(snap.Items), len(snap.FailedSources))
	log.Printf("snapshot saved: items=%d failed=%d", len(snap.Items), len(snap.FailedSources))
	return res, nil
}

func (s *Scheduler) tick() {
	log.Println("start collect job...")
	if _, err := s.RunOnce(context.Background()); err != nil {
		if errors.Is(err, ErrBusy) {
			log.Println("skip collect job: previous run still in progress")
			return
		}
		log.Printf("collect job error: %v", err)
		return
	}
	log.Println("collect job done (all sources)")
}
