package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PostsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tempus_posts_published_total",
		Help: "Total posts published to the platform",
	})
	PostsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tempus_posts_failed_total",
		Help: "Total posts that went terminally failed",
	})
	Engagements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tempus_engagements_total",
		Help: "Total engagement actions by type and outcome",
	}, []string{"action", "outcome"})
	QuotaDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tempus_quota_denials_total",
		Help: "Total actions deferred by the quota tracker",
	}, []string{"action"})
	GenerationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tempus_generation_failures_total",
		Help: "Total content generation failures",
	})
	TaskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tempus_task_duration_seconds",
		Help:    "Queue task duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
	TasksRetried = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tempus_tasks_retried_total",
		Help: "Total delayed re-enqueues by task",
	}, []string{"task"})
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tempus_queue_depth",
		Help: "Ready tasks waiting in the queue",
	})
)

func init() {
	prometheus.MustRegister(
		PostsPublished, PostsFailed, Engagements, QuotaDenials,
		GenerationFailures, TaskDuration, TasksRetried, QueueDepth,
	)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveTask records a task run duration.
func ObserveTask(task string, start time.Time) {
	TaskDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())
}
