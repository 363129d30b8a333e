// Package metrics 注册进程内的Prometheus指标
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	NoteOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_operations_total",
			Help: "Total number of note operations by outcome",
		},
		[]string{"operation", "outcome"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of serving HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	ReconcileRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notes_reconcile_removed_total",
			Help: "Total number of orphaned blobs removed by the reconcile sweep",
		},
	)
	ReconcileDangling = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notes_reconcile_dangling",
			Help: "Notes whose blob was missing at the last reconcile sweep",
		},
	)
)

// ObserveNoteOperation 记录一次笔记操作的结果，签名与 note.WithObserver 匹配
func ObserveNoteOperation(op, outcome string) {
	NoteOperations.WithLabelValues(op, outcome).Inc()
}

// Middleware 按路由模板记录请求耗时，未匹配的路由统一记为 "unmatched"
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler 暴露 /metrics
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
