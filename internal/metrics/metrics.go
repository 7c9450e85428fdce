package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "addrgeo_requests_total",
		Help: "Total number of address lookup requests by endpoint",
	}, []string{"endpoint"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "addrgeo_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"endpoint"})
	BadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "addrgeo_bad_requests_total",
		Help: "Requests rejected for invalid parameters",
	}, []string{"endpoint"})
	LabelFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "addrgeo_label_fallback_total",
		Help: "Labels that fell back to the canonical English name",
	}, []string{"level", "lang"})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "addrgeo_redis_hits_total",
		Help: "Total redis cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "addrgeo_redis_misses_total",
		Help: "Total redis cache misses",
	})
	LocalCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "addrgeo_local_cache_hits_total",
		Help: "Total in-process response cache hits",
	})
	ReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "addrgeo_reloads_total",
		Help: "Resolver reloads by status",
	}, []string{"status"})
	TreeNodes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "addrgeo_tree_nodes",
		Help: "Nodes per level in the currently served tree",
	}, []string{"level"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(BadRequestsTotal)
	prometheus.MustRegister(LabelFallbackTotal)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(LocalCacheHitsTotal)
	prometheus.MustRegister(ReloadsTotal)
	prometheus.MustRegister(TreeNodes)
}

// 文档注释：返回 Prometheus 指标处理器，在主入口挂载到 {API_BASE}/metrics
func Handler() http.Handler { return promhttp.Handler() }
