package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocluster_requests_total",
		Help: "Total number of API requests by route and status class",
	}, []string{"route", "code"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geocluster_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"route"})
	PointsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocluster_points_dropped_total",
		Help: "Input rows dropped because they could not be parsed or projected",
	})
	LloydStepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocluster_lloyd_steps_total",
		Help: "Total Lloyd assignment+update iterations",
	})
	LloydEmptyClustersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocluster_lloyd_empty_clusters_total",
		Help: "Centers left in place because no point was assigned to them",
	})
	KCenterStepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocluster_kcenter_steps_total",
		Help: "Total single-combination k-center steps",
	})
	KCenterCombinationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocluster_kcenter_combinations_total",
		Help: "Combinations evaluated by one-shot brute force searches",
	})
	KCenterSearchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geocluster_kcenter_search_duration_ms",
		Help:    "Brute force k-center search duration in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 20000},
	})
	ResultCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocluster_result_cache_hits_total",
		Help: "Brute force results served from redis",
	})
	ResultCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocluster_result_cache_misses_total",
		Help: "Brute force results not found in redis",
	})
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geocluster_sessions_active",
		Help: "Sessions currently held in memory",
	})
	PlaybackTicksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocluster_playback_ticks_total",
		Help: "Autoplay ticks by engine",
	}, []string{"engine"})
	FramesPushedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocluster_frames_pushed_total",
		Help: "Frames written to websocket subscribers",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(PointsDroppedTotal)
	prometheus.MustRegister(LloydStepsTotal)
	prometheus.MustRegister(LloydEmptyClustersTotal)
	prometheus.MustRegister(KCenterStepsTotal)
	prometheus.MustRegister(KCenterCombinationsTotal)
	prometheus.MustRegister(KCenterSearchDurationMs)
	prometheus.MustRegister(ResultCacheHitsTotal)
	prometheus.MustRegister(ResultCacheMissesTotal)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(PlaybackTicksTotal)
	prometheus.MustRegister(FramesPushedTotal)
}

// 文档注释：返回 Prometheus 指标监听器，在主入口挂载到 /metrics
func Handler() http.Handler { return promhttp.Handler() }
