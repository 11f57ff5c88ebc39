package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testCLSJSON = `{"l":{
 "101":{"brief":"早间快讯","content":"<b>美股</b>收涨","ctime":1704074400},
 "102":{"title":"午间快讯","content":"","ctime":1704081600},
 "103":{"brief":"","title":"","ctime":1704081600}
}}`

type stubRenderer struct {
	html string
	err  error
	urls []string
}

func (s *stubRenderer) Render(ctx context.Context, pageURL string, wait time.Duration) (string, error) {
	s.urls = append(s.urls, pageURL)
	return s.html, s.err
}

func TestCLSFetcherAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("app") != "CailianpressWeb" {
			t.Errorf("missing app query param: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(testCLSJSON))
	}))
	defer srv.Close()

	f := NewCLSFetcher(nil)
	f.APIURL = srv.URL
	f.now = fixedNow

	items, err := f.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	// 按 ctime 倒序
	if items[0].Title != "午间快讯" || items[1].Title != "早间快讯" {
		t.Fatalf("unexpected order: %q, %q", items[0].Title, items[1].Title)
	}
	if items[0].Summary != "午间快讯" {
		t.Fatalf("empty content should fall back to title, got %q", items[0].Summary)
	}
	if items[1].Summary != "美股收涨" {
		t.Fatalf("summary = %q", items[1].Summary)
	}
	if items[1].URL != "https://www.cls.cn/telegraph/101" {
		t.Fatalf("url = %q", items[1].URL)
	}
	if items[1].PublishedAt != "2024-01-01T02:00:00Z" {
		t.Fatalf("PublishedAt = %q", items[1].PublishedAt)
	}
}

func TestCLSFetcherFallsBackToRenderedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	r := &stubRenderer{html: `<html><body>
<div class="telegraph-list"><a href="/telegraph/9">渲染快讯</a></div>
</body></html>`}
	f := NewCLSFetcher(r)
	f.APIURL = srv.URL
	f.client.maxRetries = 1
	f.now = fixedNow

	items, err := f.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(r.urls) != 1 || r.urls[0] != clsTelegraphURL {
		t.Fatalf("renderer not called with telegraph page: %v", r.urls)
	}
	if len(items) != 1 || items[0].Title != "渲染快讯" || items[0].URL != "https://www.cls.cn/telegraph/9" {
		t.Fatalf("unexpected rendered items: %+v", items)
	}
}

func TestCLSFetcherWithoutRendererReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	f := NewCLSFetcher(nil)
	f.APIURL = srv.URL
	if _, err := f.Fetch(context.Background(), ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCLSFetcherJoinsErrorsWhenFallbackFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	renderErr := errors.New("renderer down")
	f := NewCLSFetcher(&stubRenderer{err: renderErr})
	f.APIURL = srv.URL

	_, err := f.Fetch(context.Background(), "")
	if !errors.Is(err, renderErr) {
		t.Fatalf("expected joined renderer error, got %v", err)
	}
}

func TestParseCLSPageRespectsTargetDate(t *testing.T) {
	html := `<article><a href="https://www.cls.cn/telegraph/1">快讯</a></article>`
	items, err := parseCLSPage(html, fixedNow(), "2023-12-31")
	if err != nil {
		t.Fatalf("parseCLSPage error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("page items are stamped now and should not match another day: %+v", items)
	}
}
