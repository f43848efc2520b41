package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quakewatch"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	RefreshLoopRunning prometheus.Gauge
	Refreshes          *prometheus.CounterVec // labels: outcome={success,error}
	FeedEvents         prometheus.Gauge
	ViewEvents         prometheus.Gauge
	PipelineDuration   prometheus.Histogram

	// USGS client metrics.
	FetchDuration *prometheus.HistogramVec // labels: kind={feed,detail}
	FeedCache     *prometheus.CounterVec   // labels: result={hit,miss}
	DetailCache   *prometheus.CounterVec   // labels: result={hit,miss}

	// Map viewport metrics.
	MapRecomputes      prometheus.Counter
	MapMovesSuperseded prometheus.Counter
	MapVisibleEvents   prometheus.Gauge

	// Alert metrics.
	AlertsEnabled   prometheus.Gauge
	AlertsPublished prometheus.Counter
	AlertErrors     prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		RefreshLoopRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_loop_running",
			Help:      help("1 when the refresh loop is active, 0 when shut down."),
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      help("Feed refreshes by outcome."),
		}, []string{"outcome"}),
		FeedEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_events",
			Help:      help("Events in the most recently fetched feed."),
		}),
		ViewEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "view_events",
			Help:      help("Events in the current filtered view."),
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      help("Duration of a filter, sort and stats recompute."),
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "usgs_fetch_duration_seconds",
			Help:      help("USGS request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		FeedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_cache_total",
			Help:      help("Feed cache lookups by result."),
		}, []string{"result"}),
		DetailCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_cache_total",
			Help:      help("Event detail cache lookups by result."),
		}, []string{"result"}),
		MapRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_recomputes_total",
			Help:      help("Spatial window recomputes."),
		}),
		MapMovesSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_moves_superseded_total",
			Help:      help("Map moves that replaced a pending debounced recompute."),
		}),
		MapVisibleEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "map_visible_events",
			Help:      help("Events inside the current map viewport."),
		}),
		AlertsEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alerts_enabled",
			Help:      help("1 when alert publishing is enabled, 0 otherwise."),
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      help("Alert messages written to Kafka."),
		}),
		AlertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_errors_total",
			Help:      help("Failed alert publish attempts."),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RefreshLoopRunning,
		m.Refreshes,
		m.FeedEvents,
		m.ViewEvents,
		m.PipelineDuration,
		m.FetchDuration,
		m.FeedCache,
		m.DetailCache,
		m.MapRecomputes,
		m.MapMovesSuperseded,
		m.MapVisibleEvents,
		m.AlertsEnabled,
		m.AlertsPublished,
		m.AlertErrors,
	}
}
