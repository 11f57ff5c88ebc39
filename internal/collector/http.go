package collector

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultUserAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	httpMaxResponseBytes = 4 << 20 // 4MB
	httpMaxRetries       = 3
	httpClientTimeout    = 30 * time.Second
	// 同一采集器内相邻请求的最小间隔（含重试）
	httpRequestInterval = 500 * time.Millisecond
)

// httpClient 是采集器私有的传输句柄：带重试与限速，不在采集器之间共享
type httpClient struct {
	name       string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

func newHTTPClient(name string) *httpClient {
	return &httpClient{
		name:       name,
		client:     &http.Client{Timeout: httpClientTimeout},
		limiter:    rate.NewLimiter(rate.Every(httpRequestInterval), 1),
		maxRetries: httpMaxRetries,
	}
}

// get 发起 GET 请求，失败时最多重试 maxRetries 次；ctx 取消立即返回
func (h *httpClient) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= h.maxRetries; attempt++ {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: wait limiter: %w", h.name, err)
		}
		body, err := h.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.Printf("%s request failed (attempt %d/%d): %v", h.name, attempt, h.maxRetries, err)
	}
	return nil, fmt.Errorf("%s: get %s: %w", h.name, url, lastErr)
}

func (h *httpClient) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, httpMaxResponseBytes))
}
