package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Sampling loop counters
	FramesReceived atomic.Uint64
	TicksSampled   atomic.Uint64
	TicksIdle      atomic.Uint64
	Verdicts       atomic.Uint64
	Violations     atomic.Uint64

	// Error counters
	ClassifierErrors  atomic.Uint64
	PersistenceErrors atomic.Uint64
	EmailErrors       atomic.Uint64

	// Dispatcher counters
	AlertsCreated   atomic.Uint64
	DuplicateAlerts atomic.Uint64
	EmailsSent      atomic.Uint64
	EventsPublished atomic.Uint64

	// Fan-out counters
	WatcherDrops atomic.Uint64

	// Live state
	ActiveSessions atomic.Uint64
	AccessGranted  atomic.Uint64 // sessions currently in the granted state

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	// Sampling loop metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_frames_received_total",
			Help: "Total webcam frames ingested over session WebSockets",
		},
		func() float64 { return float64(m.FramesReceived.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_ticks_sampled_total",
			Help: "Total sampling ticks that found a frame to evaluate",
		},
		func() float64 { return float64(m.TicksSampled.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_ticks_idle_total",
			Help: "Total sampling ticks skipped because no new frame arrived",
		},
		func() float64 { return float64(m.TicksIdle.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_verdicts_total",
			Help: "Total helmet verdicts produced",
		},
		func() float64 { return float64(m.Verdicts.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_violations_total",
			Help: "Total verdicts that qualified as helmet violations",
		},
		func() float64 { return float64(m.Violations.Load()) },
	))

	// Error metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_classifier_errors_total",
			Help: "Total failed helmet detector calls",
		},
		func() float64 { return float64(m.ClassifierErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_persistence_errors_total",
			Help: "Total failed detection or alert writes",
		},
		func() float64 { return float64(m.PersistenceErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_email_errors_total",
			Help: "Total failed alert email deliveries",
		},
		func() float64 { return float64(m.EmailErrors.Load()) },
	))

	// Dispatcher metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_alerts_created_total",
			Help: "Total alert rows created",
		},
		func() float64 { return float64(m.AlertsCreated.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_duplicate_alerts_total",
			Help: "Total alert inserts skipped by the per-detection uniqueness guard",
		},
		func() float64 { return float64(m.DuplicateAlerts.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_emails_sent_total",
			Help: "Total alert emails delivered",
		},
		func() float64 { return float64(m.EmailsSent.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_events_published_total",
			Help: "Total insert events published to Redis",
		},
		func() float64 { return float64(m.EventsPublished.Load()) },
	))

	// Fan-out metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_watcher_drops_total",
			Help: "Total session events dropped on slow watcher channels",
		},
		func() float64 { return float64(m.WatcherDrops.Load()) },
	))

	// Live state metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_active_sessions",
			Help: "Number of running monitoring sessions",
		},
		func() float64 { return float64(m.ActiveSessions.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mineguard_access_granted_sessions",
			Help: "Number of sessions currently granting access",
		},
		func() float64 { return float64(m.AccessGranted.Load()) },
	))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
