package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/LJTian/FinNewsHub/internal/collector"
	"github.com/chromedp/chromedp"
)

const (
	defaultWait = 2 * time.Second
	maxWait     = 10 * time.Second
)

func main() {
	// 整个进程复用一个 headless 实例
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 预热浏览器，避免首个请求耗时过长
	if err := chromedp.Run(browserCtx); err != nil {
		log.Printf("warn: warmup chromedp failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/render", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req collector.RenderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, collector.RenderResponse{OK: false, Error: "invalid json"})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, collector.RenderResponse{OK: false, Error: "url is required"})
			return
		}
		wait := time.Duration(req.WaitMs) * time.Millisecond
		if wait <= 0 || wait > maxWait {
			wait = defaultWait
		}

		// 每个请求在同一个浏览器里开新标签页，互不干扰
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()
		ctx, cancel := context.WithTimeout(tabCtx, 30*time.Second)
		defer cancel()

		actions := []chromedp.Action{
			chromedp.Navigate(req.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		}
		if req.WaitSelector != "" {
			actions = append(actions, chromedp.WaitVisible(req.WaitSelector, chromedp.ByQuery))
		}
		var html string
		actions = append(actions,
			chromedp.Sleep(wait),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)

		if err := chromedp.Run(ctx, actions...); err != nil {
			log.Printf("render error: %v (url=%s)", err, req.URL)
			writeJSON(w, http.StatusOK, collector.RenderResponse{OK: false, Error: err.Error()})
			return
		}
		if html == "" {
			writeJSON(w, http.StatusOK, collector.RenderResponse{OK: false, Error: "empty page"})
			return
		}

		writeJSON(w, http.StatusOK, collector.RenderResponse{OK: true, HTML: html})
	})

	addr := ":" + getEnv("PORT", "4000")
	log.Printf("browser-scraper listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("http server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
