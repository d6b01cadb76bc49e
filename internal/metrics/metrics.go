// Package metrics exposes ledger and HTTP counters in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fundraiser/internal/middleware"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry     *prometheus.Registry
	donations    prometheus.Counter
	withdrawals  prometheus.Counter
	rejections   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		donations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fundraiser_donations_total",
			Help: "Donations accepted across all ledgers.",
		}),
		withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fundraiser_withdrawals_total",
			Help: "Withdrawals completed across all ledgers.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundraiser_rejections_total",
			Help: "Rejected ledger mutations by operation and reason.",
		}, []string{"op", "reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.donations,
		m.withdrawals,
		m.rejections,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) DonationAccepted() {
	if m == nil {
		return
	}
	m.donations.Inc()
}

func (m *Metrics) WithdrawalCompleted() {
	if m == nil {
		return
	}
	m.withdrawals.Inc()
}

func (m *Metrics) Rejected(op, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(op, reason).Inc()
}

// Middleware counts requests by chi route pattern, so path parameters do not
// explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &middleware.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		route := middleware.RoutePattern(r)
		m.httpRequests.WithLabelValues(route, strconv.Itoa(rec.Status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
