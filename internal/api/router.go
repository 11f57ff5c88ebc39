package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LJTian/FinNewsHub/internal/collector"
	"github.com/LJTian/FinNewsHub/internal/metrics"
	"github.com/LJTian/FinNewsHub/internal/pipeline"
	"github.com/LJTian/FinNewsHub/internal/processor"
	"github.com/LJTian/FinNewsHub/internal/scheduler"
	"github.com/LJTian/FinNewsHub/internal/storage"
	"github.com/gin-gonic/gin"
)

type Options struct {
	Store     storage.Store
	Cache     storage.QueryCache // 可为 nil，表示不缓存临时查询
	CacheTTL  time.Duration
	Scheduler *scheduler.Scheduler
	Pipeline  *pipeline.Coordinator
	Metrics   *metrics.Metrics
}

type Server struct {
	store    storage.Store
	cache    storage.QueryCache
	cacheTTL time.Duration
	sched    *scheduler.Scheduler
	pipeline *pipeline.Coordinator
	metrics  *metrics.Metrics
}

func NewServer(opts Options) *Server {
	return &Server{
		store:    opts.Store,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		sched:    opts.Scheduler,
		pipeline: opts.Pipeline,
		metrics:  opts.Metrics,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/crawl", s.crawl)
		v1.GET("/news", s.listNews)
		v1.GET("/last-update", s.lastUpdate)
	}
}

// CrawlRequest 两个字段都可省略；date 为空表示不按日期过滤
type CrawlRequest struct {
	Date     string   `json:"date"`
	Keywords []string `json:"keywords"`
}

type CrawlResponse struct {
	Success       bool     `json:"success"`
	Count         int      `json:"count"`
	FailedSources []string `json:"failed_sources"`
	Message       string   `json:"message"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "finnews collector running"})
}

func (s *Server) crawl(c *gin.Context) {
	var req CrawlRequest
	// 允许空请求体
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return
	}
	req.Date = strings.TrimSpace(req.Date)
	if req.Date != "" && !collector.ValidDate(req.Date) {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}

	res, err := s.sched.Crawl(c.Request.Context(), req.Date, req.Keywords)
	if errors.Is(err, scheduler.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{
			"code":    "busy",
			"message": "a crawl is already running",
		})
		return
	}
	if err != nil {
		internalError(c)
		return
	}

	msg := fmt.Sprintf("fetched %d items", len(res.Items))
	if n := len(res.FailedSources); n > 0 {
		msg += fmt.Sprintf(", %d sources failed", n)
	}
	ok(c, CrawlResponse{
		Success:       !res.AllFailed(),
		Count:         len(res.Items),
		FailedSources: res.FailedSources,
		Message:       msg,
	})
}

// listNews 不带参数时返回当前快照；指定 date 或 keywords 时临时采集一轮，结果不覆盖快照
func (s *Server) listNews(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date != "" && !collector.ValidDate(date) {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	keywords := processor.ParseKeywords(c.Query("keywords"))

	if date == "" && len(keywords) == 0 {
		snap, err := s.store.Current(c.Request.Context())
		if errors.Is(err, storage.ErrNoSnapshot) {
			ok(c, storage.Snapshot{Items: []collector.Item{}, FailedSources: []string{}})
			return
		}
		if err != nil {
			internalError(c)
			return
		}
		ok(c, snap)
		return
	}

	key := storage.QueryKey(date, keywords)
	if s.cache != nil {
		if snap, hit := s.cache.GetQuery(c.Request.Context(), key); hit {
			ok(c, snap)
			return
		}
	}

	res := s.pipeline.Run(c.Request.Context(), date, keywords, s.sched.Fetchers())
	snap := storage.Snapshot{
		Items:         res.Items,
		FailedSources: res.FailedSources,
		TotalSources:  res.TotalSources,
		UpdatedAt:     time.Now().UTC(),
	}
	if s.cache != nil && !res.AllFailed() {
		s.cache.PutQuery(c.Request.Context(), key, snap, s.cacheTTL)
	}
	ok(c, snap)
}

func (s *Server) lastUpdate(c *gin.Context) {
	snap, err := s.store.Current(c.Request.Context())
	if errors.Is(err, storage.ErrNoSnapshot) {
		ok(c, gin.H{"last_update": nil})
		return
	}
	if err != nil {
		internalError(c)
		return
	}
	ok(c, gin.H{"last_update": snap.UpdatedAt.Format(time.RFC3339)})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    "invalid_argument",
		"message": msg,
	})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}
