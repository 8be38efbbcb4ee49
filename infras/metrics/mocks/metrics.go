package mocks

import (
	"lodge/infras/metrics"
	"net/http"
	"time"
)

// Noop discards every observation. Embed it to record only the calls a test cares about.
type Noop struct{}

func (Noop) RecordReservation(_, _ string) {}

func (Noop) RecordBooking(_, _ string) {}

func (Noop) RecordCache(_ string, _ bool) {}

func (Noop) ObserveHTTP(_, _ string, _ int, _ time.Duration) {}

func (Noop) Handler() http.Handler {
	return http.NotFoundHandler()
}

func NewMetrics() metrics.Metrics {
	return Noop{}
}
