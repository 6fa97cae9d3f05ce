// Package metrics provides Prometheus metrics for chat sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess     = "success"
	OutcomeNoResponse  = "no_response"
	OutcomeUnreachable = "unreachable"
	OutcomeIgnored     = "ignored"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	TurnsTotal         *prometheus.CounterVec
	ReplyDuration      prometheus.Histogram
	StorageErrorsTotal *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_chat_turns_total",
				Help: "Total number of user turns by outcome",
			},
			[]string{"outcome"},
		),
		ReplyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ai_chat_reply_duration_seconds",
				Help:    "Duration of reply generation requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		StorageErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_chat_storage_errors_total",
				Help: "Total number of failed transcript storage operations",
			},
			[]string{"op"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ai_chat_active_sessions",
				Help: "Number of initialized session controllers",
			},
		),
	}
}

func (m *Metrics) RecordTurn(outcome string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordReply(duration time.Duration) {
	if m == nil {
		return
	}
	m.ReplyDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordStorageError(op string) {
	if m == nil {
		return
	}
	m.StorageErrorsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}
