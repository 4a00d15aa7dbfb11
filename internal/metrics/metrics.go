package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasklane_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasklane_http_errors_total",
		Help: "Total number of HTTP requests resulting in server errors.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tasklane_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	aiCompletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasklane_ai_completions_total",
		Help: "Task generation calls by source and outcome.",
	}, []string{"source", "outcome"})

	aiCompletionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tasklane_ai_completion_duration_seconds",
		Help:    "Latency of completion service calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	activeWorkspaces = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tasklane_active_workspaces",
		Help: "Number of user workspaces currently held in memory.",
	})

	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tasklane_stream_clients",
		Help: "Number of connected workspace event streams.",
	})
)

// Middleware records request metrics for every Gin route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		statusCode := strconv.Itoa(status)
		method := c.Request.Method

		httpRequestsTotal.WithLabelValues(method, route).Inc()
		httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(time.Since(start).Seconds())
		if status >= http.StatusInternalServerError {
			httpErrorsTotal.WithLabelValues(method, route, statusCode).Inc()
		}
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCompletion records one task generation call.
func ObserveCompletion(source, outcome string, start time.Time) {
	aiCompletionsTotal.WithLabelValues(source, outcome).Inc()
	aiCompletionDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

func WorkspaceOpened() { activeWorkspaces.Inc() }
func WorkspaceClosed() { activeWorkspaces.Dec() }

func StreamOpened() { streamClients.Inc() }
func StreamClosed() { streamClients.Dec() }
