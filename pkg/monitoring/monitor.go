package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// mode: fixed | final; resumed attempts are counted separately.
	QuizAttemptsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempts_started_total",
			Help: "Quiz attempts started or resumed",
		},
		[]string{"mode", "resumed"},
	)

	// outcome: passed | failed | expired
	QuizAttemptsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempts_submitted_total",
			Help: "Quiz attempts closed by submission or time-limit expiry",
		},
		[]string{"mode", "outcome"},
	)

	QuizScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_attempt_score_percent",
			Help:    "Distribution of graded attempt scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	FinalSelectionRerolls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_final_selection_rerolls_total",
			Help: "Final-exam selections redrawn because the persisted one no longer resolved",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(QuizAttemptsStarted)
		prometheus.MustRegister(QuizAttemptsSubmitted)
		prometheus.MustRegister(QuizScore)
		prometheus.MustRegister(FinalSelectionRerolls)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
