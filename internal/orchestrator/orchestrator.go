// Package orchestrator 并发执行所有数据源的采集，并在单源超时与整体超时两级期限内汇总结果。
//
// 单个数据源的失败（出错或超时）只记录在结果里，不会作为 error 返回；
// 期限到达后仍未完成的任务被放弃，其后续输出不会进入结果。
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/LJTian/FinNewsHub/internal/collector"
)

const (
	DefaultSourceTimeout = 30 * time.Second
	DefaultTotalTimeout  = 60 * time.Second
)

// ErrInvalidTimeouts 期限配置不合法（非正数，或整体期限小于单源期限）
var ErrInvalidTimeouts = errors.New("orchestrator: invalid timeouts")

// Cause 数据源失败原因
type Cause string

const (
	CauseNone    Cause = ""
	CauseError   Cause = "error"
	CauseTimeout Cause = "timeout"
)

// Outcome 单个数据源本轮的采集结果
type Outcome struct {
	Name    string
	Items   int
	Cause   Cause
	Err     error
	Elapsed time.Duration
}

func (o Outcome) Failed() bool {
	return o.Cause != CauseNone
}

// Result 是 FetchAll 的汇总输出。
// Items 按数据源注册顺序拼接；FailedSources 按字典序排列；Outcomes 与注册顺序一致。
type Result struct {
	Items         []collector.Item
	FailedSources []string
	Outcomes      []Outcome
}

type Orchestrator struct {
	sourceTimeout time.Duration
	totalTimeout  time.Duration
}

// New 创建编排器，要求 0 < sourceTimeout <= totalTimeout
func New(sourceTimeout, totalTimeout time.Duration) (*Orchestrator, error) {
	if sourceTimeout <= 0 || totalTimeout <= 0 || totalTimeout < sourceTimeout {
		return nil, fmt.Errorf("%w: source=%s total=%s", ErrInvalidTimeouts, sourceTimeout, totalTimeout)
	}
	return &Orchestrator{sourceTimeout: sourceTimeout, totalTimeout: totalTimeout}, nil
}

// NewDefault 使用默认期限（30s / 60s）
func NewDefault() *Orchestrator {
	return &Orchestrator{sourceTimeout: DefaultSourceTimeout, totalTimeout: DefaultTotalTimeout}
}

func (o *Orchestrator) SourceTimeout() time.Duration { return o.sourceTimeout }
func (o *Orchestrator) TotalTimeout() time.Duration  { return o.totalTimeout }

// settled 由任务 goroutine 发往汇总循环；结果槽位只在汇总循环内写入
type settled struct {
	idx     int
	items   []collector.Item
	err     error
	cause   Cause
	elapsed time.Duration
}

// FetchAll 为每个数据源启动一个 goroutine 并等待，最长等待 totalTimeout。
// ctx 被取消时同样立即返回，未完成的数据源记为超时。
func (o *Orchestrator) FetchAll(ctx context.Context, targetDate string, fetchers []collector.Fetcher) Result {
	res := Result{
		Items:         []collector.Item{},
		FailedSources: []string{},
		Outcomes:      make([]Outcome, len(fetchers)),
	}
	if len(fetchers) == 0 {
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, o.totalTimeout)
	// 返回时取消，被放弃的任务可借此中止底层 I/O
	defer cancel()

	start := time.Now()
	done := make(chan settled, len(fetchers))
	for i, f := range fetchers {
		go o.runTask(ctx, i, f, targetDate, done)
	}

	settledAll := collect(ctx, done, len(fetchers))

	items := make([][]collector.Item, len(fetchers))
	finished := make([]bool, len(fetchers))
	for i, s := range settledAll {
		if s == nil {
			continue
		}
		finished[i] = true
		res.Outcomes[i] = Outcome{
			Name:    fetchers[i].Name(),
			Items:   len(s.items),
			Cause:   s.cause,
			Err:     s.err,
			Elapsed: s.elapsed,
		}
		if s.cause == CauseNone {
			items[i] = s.items
		}
	}

	for i, f := range fetchers {
		if !finished[i] {
			res.Outcomes[i] = Outcome{
				Name:    f.Name(),
				Cause:   CauseTimeout,
				Err:     ctx.Err(),
				Elapsed: time.Since(start),
			}
		}
		out := res.Outcomes[i]
		switch out.Cause {
		case CauseNone:
			res.Items = append(res.Items, items[i]...)
			log.Printf("%s done, fetched=%d in %s", out.Name, out.Items, out.Elapsed.Round(time.Millisecond))
		case CauseTimeout:
			res.FailedSources = append(res.FailedSources, out.Name)
			log.Printf("fetch %s timeout after %s", out.Name, out.Elapsed.Round(time.Millisecond))
		default:
			res.FailedSources = append(res.FailedSources, out.Name)
			log.Printf("fetch %s error: %v", out.Name, out.Err)
		}
	}
	sort.Strings(res.FailedSources)
	return res
}

// collect 接收任务结果直到全部完成或 ctx 结束。ctx 结束时再取走已在缓冲区中的结果：
// 这些任务在期限前已完成，不能因 select 的随机选择被记为超时。
// 返回值按任务下标排列，未完成的为 nil。
func collect(ctx context.Context, done <-chan settled, n int) []*settled {
	out := make([]*settled, n)
	pending := n
	for pending > 0 {
		select {
		case s := <-done:
			pending--
			out[s.idx] = &s
		case <-ctx.Done():
			for pending > 0 {
				select {
				case s := <-done:
					pending--
					out[s.idx] = &s
				default:
					return out
				}
			}
		}
	}
	return out
}

func (o *Orchestrator) runTask(ctx context.Context, idx int, f collector.Fetcher, targetDate string, done chan<- settled) {
	taskCtx, cancel := context.WithTimeout(ctx, o.sourceTimeout)
	defer cancel()

	type fetchResult struct {
		items []collector.Item
		err   error
		at    time.Time
	}
	start := time.Now()
	ch := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- fetchResult{err: fmt.Errorf("panic: %v", r), at: time.Now()}
			}
		}()
		items, err := f.Fetch(taskCtx, targetDate)
		ch <- fetchResult{items: items, err: err, at: time.Now()}
	}()

	select {
	case r := <-ch:
		done <- settle(taskCtx, idx, start, r.items, r.err, r.at)
	case <-taskCtx.Done():
		select {
		case r := <-ch:
			// 结果与期限同时就绪，以完成时间为准
			done <- settle(taskCtx, idx, start, r.items, r.err, r.at)
		default:
			// 采集器未响应取消：放弃等待，其结果留在 ch 中被丢弃
			done <- settled{idx: idx, cause: CauseTimeout, err: taskCtx.Err(), elapsed: time.Since(start)}
		}
	}
}

// settle 判定一次返回的结果。期限之后才返回的结果一律作废，即使没有报错
func settle(taskCtx context.Context, idx int, start time.Time, items []collector.Item, err error, at time.Time) settled {
	s := settled{idx: idx, items: items, err: err, elapsed: at.Sub(start)}
	deadline, hasDeadline := taskCtx.Deadline()
	late := hasDeadline && !at.Before(deadline)
	switch {
	case late || (err != nil && taskCtx.Err() != nil):
		s.cause = CauseTimeout
		s.items = nil
		if s.err == nil {
			s.err = context.DeadlineExceeded
		}
	case err != nil:
		s.cause = CauseError
		s.items = nil
	}
	return s
}
