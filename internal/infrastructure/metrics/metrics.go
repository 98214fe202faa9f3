package metrics

import (
	"net/http"
	"strconv"
	"time"

	"recipe-nutrition/internal/core/cache"
	"recipe-nutrition/internal/core/nutrition"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recipe_nutrition"

// Metrics 服務指標
type Metrics struct {
	registry *prometheus.Registry

	conversions        *prometheus.CounterVec
	conversionConf     prometheus.Histogram
	fdcLookups         *prometheus.CounterVec
	fdcLookupDuration  *prometheus.HistogramVec
	verificationChecks *prometheus.CounterVec
	batchRows          *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New 以獨立 registry 建立指標
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Quantity to grams conversions by resolution method",
		}, []string{"method"}),
		conversionConf: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_confidence",
			Help:      "Confidence of quantity to grams conversions",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.5, 0.75, 0.85, 0.9, 0.95, 1},
		}),
		fdcLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fdc",
			Name:      "lookups_total",
			Help:      "FoodData Central lookups by outcome",
		}, []string{"outcome"}),
		fdcLookupDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fdc",
			Name:      "lookup_duration_seconds",
			Help:      "FoodData Central lookup latency",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		verificationChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "ingredients_total",
			Help:      "Ingredients checked against the authoritative source by status",
		}, []string{"status"}),
		batchRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "rows_total",
			Help:      "Batch update fields by result",
		}, []string{"result"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry 取得 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveConversion 換算器回呼
func (m *Metrics) ObserveConversion(result nutrition.GramsResult) {
	m.conversions.WithLabelValues(result.Method).Inc()
	m.conversionConf.Observe(result.Confidence)
}

// ObserveFDCLookup FDC 客戶端回呼
func (m *Metrics) ObserveFDCLookup(outcome string, d time.Duration) {
	m.fdcLookups.WithLabelValues(outcome).Inc()
	m.fdcLookupDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveVerification 校正服務回呼
func (m *Metrics) ObserveVerification(status string) {
	m.verificationChecks.WithLabelValues(status).Inc()
}

// ObserveBatchRow 批次更新回呼
func (m *Metrics) ObserveBatchRow(result string) {
	m.batchRows.WithLabelValues(result).Inc()
}

// RegisterCacheStats 以 GaugeFunc 匯出記憶體快取統計
func (m *Metrics) RegisterCacheStats(stats func() cache.Stats) {
	gauge := func(name, help string, value func(cache.Stats) float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(stats()) })
	}
	m.registry.MustRegister(
		gauge("entries", "Entries held by the in-memory cache", func(s cache.Stats) float64 { return float64(s.Size) }),
		gauge("hits", "In-memory cache hits", func(s cache.Stats) float64 { return float64(s.Hits) }),
		gauge("misses", "In-memory cache misses", func(s cache.Stats) float64 { return float64(s.Misses) }),
		gauge("evictions", "In-memory cache evictions", func(s cache.Stats) float64 { return float64(s.Evictions) }),
	)
}

// Middleware 記錄 HTTP 請求數與延遲
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler Prometheus 抓取端點
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
