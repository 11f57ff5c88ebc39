package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

const (
	rssMaxItemsPerFeed = 50
	rssConcurrency     = 4
)

// Feed 是一个 RSS/Atom 地址，Name 会写入 Item.Source
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// RSSMode 决定多个 feed 的组合方式
type RSSMode int

const (
	// RSSFirstNonEmpty 依次尝试，取第一个有数据的 feed
	RSSFirstNonEmpty RSSMode = iota
	// RSSAggregate 并发抓取全部 feed，按配置顺序合并
	RSSAggregate
)

// RSSFetcher 通过 RSS/Atom 抓取一个或多个 feed
type RSSFetcher struct {
	SourceName string
	Feeds      []Feed
	Mode       RSSMode
	// 每个 feed 最多取多少条，<=0 时取 rssMaxItemsPerFeed
	MaxItems int
	// 非空时标题须包含其中之一
	TitleKeywords []string

	client *httpClient
	now    func() time.Time
}

// NewRSSFetcher 创建 RSS 采集器，每个采集器持有独立的 HTTP 句柄
func NewRSSFetcher(sourceName string, mode RSSMode, feeds ...Feed) *RSSFetcher {
	return &RSSFetcher{
		SourceName: sourceName,
		Feeds:      feeds,
		Mode:       mode,
		client:     newHTTPClient(sourceName),
		now:        time.Now,
	}
}

func (r *RSSFetcher) Name() string {
	return r.SourceName
}

func (r *RSSFetcher) Fetch(ctx context.Context, targetDate string) ([]Item, error) {
	if len(r.Feeds) == 0 {
		return nil, fmt.Errorf("%s: no feeds configured", r.SourceName)
	}
	if r.client == nil {
		r.client = newHTTPClient(r.SourceName)
	}
	if r.now == nil {
		r.now = time.Now
	}

	if r.Mode == RSSAggregate {
		return r.fetchAggregate(ctx, targetDate)
	}
	return r.fetchFirstNonEmpty(ctx, targetDate)
}

func (r *RSSFetcher) fetchFirstNonEmpty(ctx context.Context, targetDate string) ([]Item, error) {
	var errs []error
	for _, f := range r.Feeds {
		items, err := r.fetchFeed(ctx, f, targetDate)
		if err != nil {
			log.Printf("%s: feed %s error: %v", r.SourceName, f.URL, err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(items) > 0 {
			return items, nil
		}
	}
	// 提前结束时不能当作空结果
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(append([]error{err}, errs...)...)
	}
	if len(errs) == len(r.Feeds) {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

func (r *RSSFetcher) fetchAggregate(ctx context.Context, targetDate string) ([]Item, error) {
	results := make([][]Item, len(r.Feeds))
	errs := make([]error, len(r.Feeds))

	var g errgroup.Group
	g.SetLimit(rssConcurrency)
	for i, f := range r.Feeds {
		g.Go(func() error {
			results[i], errs[i] = r.fetchFeed(ctx, f, targetDate)
			return nil // 单个 feed 失败不影响其它 feed
		})
	}
	_ = g.Wait()

	var (
		out    []Item
		failed []error
	)
	for i, items := range results {
		if errs[i] != nil {
			log.Printf("%s: feed %s error: %v", r.SourceName, r.Feeds[i].URL, errs[i])
			failed = append(failed, errs[i])
			continue
		}
		out = append(out, items...)
	}
	if len(failed) == len(r.Feeds) {
		return nil, errors.Join(failed...)
	}
	return out, nil
}

func (r *RSSFetcher) fetchFeed(ctx context.Context, f Feed, targetDate string) ([]Item, error) {
	body, err := r.client.get(ctx, f.URL)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: parse feed %s: %w", r.SourceName, f.URL, err)
	}

	source := f.Name
	if source == "" {
		source = r.SourceName
	}
	limit := r.MaxItems
	if limit <= 0 {
		limit = rssMaxItemsPerFeed
	}
	entries := feed.Items
	if len(entries) > limit {
		entries = entries[:limit]
	}

	fetchedAt := FormatTime(r.now())
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		title := strings.TrimSpace(e.Title)
		link := strings.TrimSpace(e.Link)
		if title == "" || link == "" {
			continue
		}
		if !r.titleAllowed(title) {
			continue
		}

		published := r.now()
		if e.PublishedParsed != nil {
			published = *e.PublishedParsed
		} else if e.UpdatedParsed != nil {
			published = *e.UpdatedParsed
		}
		if !MatchDate(published, targetDate) {
			continue
		}

		summary := e.Description
		if summary == "" {
			summary = e.Content
		}

		items = append(items, Item{
			Source:      source,
			Title:       title,
			Summary:     cleanSummary(summary),
			URL:         link,
			PublishedAt: FormatTime(published),
			FetchedAt:   fetchedAt,
		})
	}
	return items, nil
}

func (r *RSSFetcher) titleAllowed(title string) bool {
	if len(r.TitleKeywords) == 0 {
		return true
	}
	for _, kw := range r.TitleKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}
