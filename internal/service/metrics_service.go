package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	commitDuration  *prometheus.HistogramVec
	commitTotal     *prometheus.CounterVec
	ruleRejections  *prometheus.CounterVec
	loginThrottled  prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	commitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "unit_of_work_commit_duration_seconds",
		Help:    "Duration of unit of work commits",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	commitTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "unit_of_work_commits_total",
		Help: "Unit of work commit attempts by outcome",
	}, []string{"outcome"})

	ruleRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_rule_rejections_total",
		Help: "Enrollment requests rejected by rule",
	}, []string{"rule"})

	loginThrottled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "login_throttled_total",
		Help: "Login attempts rejected by the rate limiter",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, commitDuration, commitTotal, ruleRejections, loginThrottled, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		commitDuration:  commitDuration,
		commitTotal:     commitTotal,
		ruleRejections:  ruleRejections,
		loginThrottled:  loginThrottled,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveCommit records a unit of work commit attempt.
func (m *MetricsService) ObserveCommit(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commitTotal.WithLabelValues(outcome).Inc()
	m.commitDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordRuleRejection counts an enrollment rejected by rule.
func (m *MetricsService) RecordRuleRejection(rule string) {
	if m == nil {
		return
	}
	m.ruleRejections.WithLabelValues(rule).Inc()
}

// RecordLoginThrottled counts a login rejected by the rate limiter.
func (m *MetricsService) RecordLoginThrottled() {
	if m == nil {
		return
	}
	m.loginThrottled.Inc()
}
