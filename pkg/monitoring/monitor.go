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

	ChapterCompletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lms_chapter_completions_total",
			Help: "Chapter completions recorded",
		},
	)

	ViewLimitRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lms_view_limit_rejections_total",
			Help: "Completions rejected because the chapter view limit was reached",
		},
	)

	SubmissionsGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_submissions_graded_total",
			Help: "Graded quiz and homework submissions",
		},
		[]string{"kind"},
	)

	SubmissionPercentage = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lms_submission_percentage",
			Help:    "Score percentage of graded submissions",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"kind"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			ChapterCompletions,
			ViewLimitRejections,
			SubmissionsGraded,
			SubmissionPercentage,
		)
	})
}

// ObserveSubmission 记录一次评分结果
func ObserveSubmission(kind string, percentage float64) {
	SubmissionsGraded.WithLabelValues(kind).Inc()
	SubmissionPercentage.WithLabelValues(kind).Observe(percentage)
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
