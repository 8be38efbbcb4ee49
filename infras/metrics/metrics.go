package metrics

import (
	"lodge/config"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"

	defaultNamespace = "lodge"
)

type Metrics interface {
	RecordReservation(operation, result string)
	RecordBooking(operation, result string)
	RecordCache(name string, hit bool)
	ObserveHTTP(method, route string, status int, duration time.Duration)
	Handler() http.Handler
}

type prometheusMetrics struct {
	registry            *prometheus.Registry
	reservationsTotal   *prometheus.CounterVec
	bookingsTotal       *prometheus.CounterVec
	cacheLookupsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers every collector on a private registry so tests can build as many as they like.
func New(config *config.Config) Metrics {
	namespace := config.Metrics.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &prometheusMetrics{
		registry: registry,
		reservationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reservation_operations_total",
				Help:      "Room hold operations by outcome",
			},
			[]string{"operation", "result"},
		),
		bookingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "booking_operations_total",
				Help:      "Booking record operations by outcome",
			},
			[]string{"operation", "result"},
		),
		cacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by cache name and hit or miss",
			},
			[]string{"cache", "hit"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (m *prometheusMetrics) RecordReservation(operation, result string) {
	m.reservationsTotal.WithLabelValues(operation, result).Inc()
}

func (m *prometheusMetrics) RecordBooking(operation, result string) {
	m.bookingsTotal.WithLabelValues(operation, result).Inc()
}

func (m *prometheusMetrics) RecordCache(name string, hit bool) {
	m.cacheLookupsTotal.WithLabelValues(name, strconv.FormatBool(hit)).Inc()
}

func (m *prometheusMetrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

func (m *prometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Result maps an operation error onto the result label. Client side failures count as rejected.
func Result(err error, clientError func(error) bool) string {
	switch {
	case err == nil:
		return ResultSuccess
	case clientError(err):
		return ResultRejected
	default:
		return ResultError
	}
}
