package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const renderMaxResponseBytes = 8 << 20 // 8MB

// Renderer 返回 JavaScript 渲染后的页面 HTML
type Renderer interface {
	Render(ctx context.Context, pageURL string, wait time.Duration) (string, error)
}

// RenderRequest / RenderResponse 与 cmd/browser-scraper 的 /render 接口约定一致
type RenderRequest struct {
	URL    string `json:"url"`
	WaitMs int    `json:"waitMs"`
	// WaitSelector 可选，出现后再取 HTML
	WaitSelector string `json:"waitSelector,omitempty"`
}

type RenderResponse struct {
	OK    bool   `json:"ok"`
	HTML  string `json:"html,omitempty"`
	Error string `json:"error,omitempty"`
}

// SidecarRenderer 调用 browser-scraper 进程完成渲染，主进程不直接依赖浏览器
type SidecarRenderer struct {
	Endpoint string
	client   *http.Client
}

func NewSidecarRenderer(endpoint string) *SidecarRenderer {
	return &SidecarRenderer{
		Endpoint: endpoint,
		client:   &http.Client{Timeout: 40 * time.Second},
	}
}

func (r *SidecarRenderer) Render(ctx context.Context, pageURL string, wait time.Duration) (string, error) {
	payload, err := json.Marshal(RenderRequest{URL: pageURL, WaitMs: int(wait / time.Millisecond)})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("render: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("render: unexpected status %d", resp.StatusCode)
	}
	var out RenderResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, renderMaxResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("render: decode: %w", err)
	}
	if !out.OK {
		return "", fmt.Errorf("render: %s", out.Error)
	}
	return out.HTML, nil
}
