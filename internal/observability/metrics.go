package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"royalty-dashboard/internal/models"
)

const namespace = "royalty"

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	renders        prometheus.Counter
	renderDuration prometheus.Histogram
	rowsFiltered   prometheus.Gauge

	rowsLoaded     prometheus.Gauge
	rowsDropped    prometheus.Gauge
	coerced        *prometheus.GaugeVec
	sentinelFilled *prometheus.GaugeVec
	loadDuration   prometheus.Gauge
	lastLoad       prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		renders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_renders_total",
			Help:      "Filter and aggregate passes over the active table.",
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dashboard_render_duration_seconds",
			Help:      "Time spent filtering and aggregating.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		rowsFiltered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dashboard_filtered_rows",
			Help:      "Rows kept by the most recent render.",
		}),
		rowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_rows",
			Help:      "Rows in the active table.",
		}),
		rowsDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_rows_dropped",
			Help:      "Rows dropped at load for an unparseable period.",
		}),
		coerced: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_values_coerced",
			Help:      "Unparseable numeric values replaced by zero at load.",
		}, []string{"column"}),
		sentinelFilled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_values_filled",
			Help:      "Missing categorical values replaced by a placeholder at load.",
		}, []string{"column"}),
		loadDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_load_duration_seconds",
			Help:      "Duration of the most recent source load.",
		}),
		lastLoad: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_last_load_timestamp_seconds",
			Help:      "Unix time of the most recent source load.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.renders,
		m.renderDuration,
		m.rowsFiltered,
		m.rowsLoaded,
		m.rowsDropped,
		m.coerced,
		m.sentinelFilled,
		m.loadDuration,
		m.lastLoad,
	)

	return m
}

func (m *Metrics) ObserveLoad(stats models.LoadStats) {
	m.rowsLoaded.Set(float64(stats.RowsKept))
	m.rowsDropped.Set(float64(stats.RowsDropped))
	for col, n := range stats.Coerced {
		m.coerced.WithLabelValues(col).Set(float64(n))
	}
	for col, n := range stats.SentinelFilled {
		m.sentinelFilled.WithLabelValues(col).Set(float64(n))
	}
	m.loadDuration.Set(stats.Duration.Seconds())
	if !stats.LoadedAt.IsZero() {
		m.lastLoad.Set(float64(stats.LoadedAt.Unix()))
	}
}

func (m *Metrics) ObserveRender(_, filtered int, d time.Duration) {
	m.renders.Inc()
	m.renderDuration.Observe(d.Seconds())
	m.rowsFiltered.Set(float64(filtered))
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
