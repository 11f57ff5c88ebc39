package collector

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	sinaRollURL  = "https://finance.sina.com.cn/roll/index.d.html"
	sinaMaxItems = 50
)

// SinaFetcher 抓取新浪财经滚动新闻页。
// 页面上没有发布时间，发布时间取抓取时刻。
type SinaFetcher struct {
	URL string

	now func() time.Time
}

func NewSinaFetcher() *SinaFetcher {
	return &SinaFetcher{URL: sinaRollURL, now: time.Now}
}

func (s *SinaFetcher) Name() string {
	return SourceSina
}

func (s *SinaFetcher) Fetch(ctx context.Context, targetDate string) ([]Item, error) {
	log.Println("fetch Sina Finance roll news...")

	if s.now == nil {
		s.now = time.Now
	}
	pageURL := s.URL
	if pageURL == "" {
		pageURL = sinaRollURL
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("sina: parse url: %w", err)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(u.Hostname()),
		colly.UserAgent(defaultUserAgent),
	)
	c.SetRequestTimeout(15 * time.Second)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	now := s.now()
	stamp := FormatTime(now)
	results := make([]Item, 0, sinaMaxItems)

	c.OnHTML("html", func(e *colly.HTMLElement) {
		links := e.DOM.Find(`li a[href*="/s/"]`)
		if links.Length() == 0 {
			links = e.DOM.Find(`a[href*="/finance/"]`)
		}
		links.EachWithBreak(func(i int, a *goquery.Selection) bool {
			if i >= sinaMaxItems {
				return false
			}
			title := strings.TrimSpace(a.Text())
			href, ok := a.Attr("href")
			if title == "" || !ok || strings.TrimSpace(href) == "" {
				return true
			}
			if !MatchDate(now, targetDate) {
				return false
			}
			results = append(results, Item{
				Source:      SourceSina,
				Title:       title,
				Summary:     truncateRunes(title, 100),
				URL:         e.Request.AbsoluteURL(strings.TrimSpace(href)),
				PublishedAt: stamp,
				FetchedAt:   stamp,
			})
			return true
		})
	})

	if err := c.Visit(pageURL); err != nil {
		log.Printf("fetch Sina Finance failed: %v", err)
		return nil, fmt.Errorf("sina: visit: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		log.Printf("fetch Sina Finance got 0 items")
	}
	return results, nil
}
