// Package metrics holds the Prometheus collectors for the capture pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the pipeline and control API.
//
// Metrics:
//   - clipflow_captures_total{kind,outcome} - clipboard changes by result
//   - clipflow_capture_duration_seconds{kind} - end-to-end processing time
//   - clipflow_evictions_total - entries removed by the history limit
//   - clipflow_history_entries - entries currently stored
//   - clipflow_commands_total{command,result} - user commands
//   - clipflow_feed_subscribers - open change-feed subscriptions
type Metrics struct {
	Registry *prometheus.Registry

	CapturesTotal   *prometheus.CounterVec
	CaptureDuration *prometheus.HistogramVec
	EvictionsTotal  prometheus.Counter
	HistoryEntries  prometheus.Gauge
	CommandsTotal   *prometheus.CounterVec
	FeedSubscribers prometheus.Gauge
}

// New registers every collector on a fresh registry, together with the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		CapturesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clipflow_captures_total",
				Help: "Clipboard changes processed, by content kind and outcome",
			},
			[]string{"kind", "outcome"}, // kind: text|image
		),

		CaptureDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clipflow_capture_duration_seconds",
				Help:    "Time from clipboard notification to pipeline idle",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"kind"},
		),

		EvictionsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "clipflow_evictions_total",
				Help: "Entries removed by the history limit",
			},
		),

		HistoryEntries: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "clipflow_history_entries",
				Help: "Entries currently stored, pinned included",
			},
		),

		CommandsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clipflow_commands_total",
				Help: "User commands handled, by command and result",
			},
			[]string{"command", "result"},
		),

		FeedSubscribers: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "clipflow_feed_subscribers",
				Help: "Open change-feed subscriptions",
			},
		),
	}
}

// RecordCapture records one processed clipboard change.
func (m *Metrics) RecordCapture(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CapturesTotal.WithLabelValues(kind, outcome).Inc()
	m.CaptureDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordEvictions adds n evicted entries.
func (m *Metrics) RecordEvictions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EvictionsTotal.Add(float64(n))
}

// SetHistorySize updates the stored-entries gauge.
func (m *Metrics) SetHistorySize(n int) {
	if m == nil {
		return
	}
	m.HistoryEntries.Set(float64(n))
}

// RecordCommand records a user command. err == nil counts as "ok".
func (m *Metrics) RecordCommand(command string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CommandsTotal.WithLabelValues(command, result).Inc()
}

// SubscriberAdded and SubscriberRemoved track the feed gauge.
func (m *Metrics) SubscriberAdded() {
	if m != nil {
		m.FeedSubscribers.Inc()
	}
}

func (m *Metrics) SubscriberRemoved() {
	if m != nil {
		m.FeedSubscribers.Dec()
	}
}

// RegisterDropped exposes a watcher's paused-drop counter.
func (m *Metrics) RegisterDropped(dropped func() uint64) {
	if m == nil || dropped == nil {
		return
	}
	promauto.With(m.Registry).NewCounterFunc(
		prometheus.CounterOpts{
			Name: "clipflow_paused_drops_total",
			Help: "Clipboard notifications dropped while capture was paused",
		},
		func() float64 { return float64(dropped()) },
	)
}

// RegisterEchoes exposes how many of our own clipboard writes were
// recognized and skipped.
func (m *Metrics) RegisterEchoes(echoes func() uint64) {
	if m == nil || echoes == nil {
		return
	}
	promauto.With(m.Registry).NewCounterFunc(
		prometheus.CounterOpts{
			Name: "clipflow_self_writes_skipped_total",
			Help: "Clipboard notifications recognized as clipflow's own writes",
		},
		func() float64 { return float64(echoes()) },
	)
}
