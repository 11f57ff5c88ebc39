package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	clsAPIURL       = "https://www.cls.cn/nodeapi/refreshTelegraphList"
	clsTelegraphURL = "https://www.cls.cn/telegraph"
	clsBaseURL      = "https://www.cls.cn"
	clsMaxItems     = 50
	clsRenderWait   = 5 * time.Second
)

// 渲染页兜底时依次尝试的选择器
var clsPageSelectors = []string{
	`div[class*="telegraph"]`,
	`div[class*="item"]`,
	`article`,
	`a[href*="/telegraph/"]`,
}

// CLSFetcher 通过财联社电报 API 抓取快讯；API 失败且配置了渲染服务时，改为解析渲染后的电报页
type CLSFetcher struct {
	APIURL  string
	PageURL string

	renderer Renderer
	client   *httpClient
	now      func() time.Time
}

func NewCLSFetcher(renderer Renderer) *CLSFetcher {
	return &CLSFetcher{
		APIURL:   clsAPIURL,
		PageURL:  clsTelegraphURL,
		renderer: renderer,
		client:   newHTTPClient(SourceCLS),
		now:      time.Now,
	}
}

func (c *CLSFetcher) Name() string {
	return SourceCLS
}

type clsTelegraph struct {
	Title   string `json:"title"`
	Brief   string `json:"brief"`
	Content string `json:"content"`
	Ctime   int64  `json:"ctime"`
}

type clsTelegraphList struct {
	L map[string]clsTelegraph `json:"l"`
}

func (c *CLSFetcher) Fetch(ctx context.Context, targetDate string) ([]Item, error) {
	log.Println("fetch CLS telegraph...")

	if c.client == nil {
		c.client = newHTTPClient(SourceCLS)
	}
	if c.now == nil {
		c.now = time.Now
	}

	items, err := c.fetchAPI(ctx, targetDate)
	if err == nil {
		return items, nil
	}
	if c.renderer == nil || ctx.Err() != nil {
		return nil, err
	}

	log.Printf("cls: api failed, fallback to rendered page: %v", err)
	items, renderErr := c.fetchRendered(ctx, targetDate)
	if renderErr != nil {
		return nil, errors.Join(err, renderErr)
	}
	return items, nil
}

func (c *CLSFetcher) fetchAPI(ctx context.Context, targetDate string) ([]Item, error) {
	now := c.now()
	q := url.Values{}
	q.Set("app", "CailianpressWeb")
	q.Set("lastTime", strconv.FormatInt(now.Unix(), 10))
	q.Set("os", "web")
	q.Set("sv", "8.4.6")
	q.Set("sign", "")

	body, err := c.client.get(ctx, c.APIURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var list clsTelegraphList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("cls: unmarshal telegraph list: %w", err)
	}
	if list.L == nil {
		return nil, fmt.Errorf("cls: telegraph list missing")
	}

	// 接口返回的是 map，按时间倒序、id 升序固定输出顺序
	ids := make([]string, 0, len(list.L))
	for id := range list.L {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := list.L[ids[i]], list.L[ids[j]]
		if a.Ctime != b.Ctime {
			return a.Ctime > b.Ctime
		}
		return ids[i] < ids[j]
	})

	fetchedAt := FormatTime(now)
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		t := list.L[id]
		title := strings.TrimSpace(t.Brief)
		if title == "" {
			title = strings.TrimSpace(t.Title)
		}
		if title == "" {
			continue
		}
		content := t.Content
		if strings.TrimSpace(content) == "" {
			content = title
		}

		published := now
		if t.Ctime > 0 {
			published = time.Unix(t.Ctime, 0)
		}
		if !MatchDate(published, targetDate) {
			continue
		}

		items = append(items, Item{
			Source:      SourceCLS,
			Title:       title,
			Summary:     cleanSummary(content),
			URL:         clsTelegraphURL + "/" + id,
			PublishedAt: FormatTime(published),
			FetchedAt:   fetchedAt,
		})
	}
	return items, nil
}

func (c *CLSFetcher) fetchRendered(ctx context.Context, targetDate string) ([]Item, error) {
	html, err := c.renderer.Render(ctx, c.PageURL, clsRenderWait)
	if err != nil {
		return nil, err
	}
	return parseCLSPage(html, c.now(), targetDate)
}

// parseCLSPage 从渲染后的电报页中提取条目，取第一个有结果的选择器
func parseCLSPage(html string, now time.Time, targetDate string) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("cls: parse page: %w", err)
	}
	if !MatchDate(now, targetDate) {
		return nil, nil
	}

	stamp := FormatTime(now)
	for _, sel := range clsPageSelectors {
		var items []Item
		doc.Find(sel).EachWithBreak(func(i int, s *goquery.Selection) bool {
			if i >= clsMaxItems {
				return false
			}
			link := s
			if !s.Is("a") {
				link = s.Find("a").First()
				if link.Length() == 0 {
					link = s
				}
			}
			title := collapseSpace(link.Text())
			href, _ := link.Attr("href")
			href = strings.TrimSpace(href)
			if title == "" || href == "" {
				return true
			}
			if !strings.HasPrefix(href, "http") {
				href = clsBaseURL + href
			}
			items = append(items, Item{
				Source:      SourceCLS,
				Title:       title,
				Summary:     truncateRunes(title, 100),
				URL:         href,
				PublishedAt: stamp,
				FetchedAt:   stamp,
			})
			return true
		})
		if len(items) > 0 {
			return items, nil
		}
	}
	return nil, nil
}
