package main

import (
	"context"
	"log"
	"time"

	"github.com/LJTian/FinNewsHub/internal/api"
	"github.com/LJTian/FinNewsHub/internal/collector"
	"github.com/LJTian/FinNewsHub/internal/config"
	"github.com/LJTian/FinNewsHub/internal/metrics"
	"github.com/LJTian/FinNewsHub/internal/orchestrator"
	"github.com/LJTian/FinNewsHub/internal/pipeline"
	"github.com/LJTian/FinNewsHub/internal/scheduler"
	"github.com/LJTian/FinNewsHub/internal/storage"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	catalog, err := config.LoadCatalog(cfg.SourcesFile)
	if err != nil {
		log.Fatalf("load sources failed: %v", err)
	}
	fetchers := collector.Builtin(cfg.SourceOptions(catalog))
	if len(fetchers) == 0 {
		log.Printf("warn: no sources enabled")
	}

	store, cache, err := storage.Open(cfg.StoreBackend, cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}
	defer store.Close()

	// 确保各个渠道存在
	if pg, ok := store.(*storage.PostgresStore); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		for _, f := range fetchers {
			if _, err := pg.EnsureChannel(ctx, f.Name()); err != nil {
				log.Fatalf("ensure channel %s failed: %v", f.Name(), err)
			}
		}
		cancel()
	}

	orch, err := orchestrator.New(cfg.SourceTimeout, cfg.TotalTimeout)
	if err != nil {
		log.Fatalf("init orchestrator failed: %v", err)
	}
	m := metrics.New()
	p := pipeline.New(orch, m)

	s, err := scheduler.New(cfg.CronSpec, p, fetchers, store, m)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start(cfg.StartupCrawl)
	defer s.Stop()

	// API
	r := gin.Default()
	apiServer := api.NewServer(api.Options{
		Store:     store,
		Cache:     cache,
		CacheTTL:  cfg.QueryCacheTTL,
		Scheduler: s,
		Pipeline:  p,
		Metrics:   m,
	})
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s with %d sources ...", addr, len(fetchers))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
