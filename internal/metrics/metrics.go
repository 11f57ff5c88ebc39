package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finnews"

// Metrics 采集与流水线指标。零值指针上的方法均为空操作，方便测试与可选注入。
type Metrics struct {
	registry *prometheus.Registry

	sourceOutcomes *prometheus.CounterVec
	sourceLatency  *prometheus.HistogramVec
	runDuration    prometheus.Histogram
	snapshotItems  prometheus.Gauge
	failedSources  prometheus.Gauge
	lastRun        prometheus.Gauge
}

// New 创建独立的 Registry，避免与全局默认 Registry 冲突
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sourceOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_total",
			Help:      "Source fetches by result (ok, error, timeout).",
		}, []string{"source", "result"}),
		sourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_seconds",
			Help:      "Source fetch latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"source"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_seconds",
			Help:      "End-to-end pipeline run duration.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}),
		snapshotItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_items",
			Help:      "Items in the last stored snapshot.",
		}),
		failedSources: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_failed_sources",
			Help:      "Failed sources in the last stored snapshot.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_last_run_timestamp_seconds",
			Help:      "Unix time of the last finished pipeline run.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sourceOutcomes, m.sourceLatency, m.runDuration,
		m.snapshotItems, m.failedSources, m.lastRun,
	)
	return m
}

// ObserveSource 记录单个数据源的结果；result 为空表示成功
func (m *Metrics) ObserveSource(source, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if result == "" {
		result = "ok"
	}
	m.sourceOutcomes.WithLabelValues(source, result).Inc()
	m.sourceLatency.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveRun 记录一轮流水线的耗时，临时查询也计入
func (m *Metrics) ObserveRun(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(elapsed.Seconds())
	m.lastRun.SetToCurrentTime()
}

// ObserveSnapshot 记录已保存为当前快照的结果
func (m *Metrics) ObserveSnapshot(items, failed int) {
	if m == nil {
		return
	}
	m.snapshotItems.Set(float64(items))
	m.failedSources.Set(float64(failed))
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
