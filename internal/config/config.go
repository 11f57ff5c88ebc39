package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/LJTian/FinNewsHub/internal/collector"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "FINNEWS_CONFIG"

// 快照存储后端
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	AppPort string

	SourceTimeout time.Duration
	TotalTimeout  time.Duration

	CronSpec     string
	StartupCrawl bool

	StoreBackend string
	PostgresDSN  string
	RedisAddr    string
	// QueryCacheTTL 按日期/关键词临时采集结果的缓存时间，当前快照不过期
	QueryCacheTTL time.Duration

	RendererURL string
	SourcesFile string
}

// Load 读取配置：环境变量优先，其次是 FINNEWS_CONFIG 指向的配置文件，最后是默认值
func Load() *Config {
	v := viper.New()
	v.SetDefault("APP_PORT", "9000")
	v.SetDefault("SOURCE_TIMEOUT", "30s")
	v.SetDefault("TOTAL_TIMEOUT", "60s")
	v.SetDefault("CRON_SPEC", "*/30 * * * *")
	v.SetDefault("STARTUP_CRAWL", true)
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("POSTGRES_DSN", "host=localhost user=finnews password=finnews dbname=finnews port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("REDIS_ADDR", "localhost:6380")
	v.SetDefault("QUERY_CACHE_TTL", "10m")
	v.SetDefault("RENDERER_URL", "")
	v.SetDefault("SOURCES_FILE", "")
	v.AutomaticEnv()

	if path := getEnv(configPathEnv, ""); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("warn: read config %s: %v", path, err)
		}
	}

	cfg := &Config{
		AppPort:       v.GetString("APP_PORT"),
		SourceTimeout: v.GetDuration("SOURCE_TIMEOUT"),
		TotalTimeout:  v.GetDuration("TOTAL_TIMEOUT"),
		CronSpec:      v.GetString("CRON_SPEC"),
		StartupCrawl:  v.GetBool("STARTUP_CRAWL"),
		StoreBackend:  strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		PostgresDSN:   v.GetString("POSTGRES_DSN"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		QueryCacheTTL: v.GetDuration("QUERY_CACHE_TTL"),
		RendererURL:   v.GetString("RENDERER_URL"),
		SourcesFile:   v.GetString("SOURCES_FILE"),
	}

	log.Printf("config loaded: port=%s cron=%s backend=%s timeouts=%s/%s",
		cfg.AppPort, cfg.CronSpec, cfg.StoreBackend, cfg.SourceTimeout, cfg.TotalTimeout)
	return cfg
}

// Catalog 数据源目录文件（YAML）：关闭内置源、追加 RSS 源
type Catalog struct {
	Disabled []string              `yaml:"disabled"`
	Extra    []collector.ExtraFeed `yaml:"extra"`
}

// LoadCatalog 读取数据源目录；path 为空时返回空目录
func LoadCatalog(path string) (Catalog, error) {
	var c Catalog
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read sources file: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse sources file: %w", err)
	}
	return c, nil
}

// SourceOptions 组合配置与目录，生成采集器注册参数
func (c *Config) SourceOptions(cat Catalog) collector.Options {
	return collector.Options{
		RendererURL: c.RendererURL,
		Disabled:    cat.Disabled,
		Extra:       cat.Extra,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
