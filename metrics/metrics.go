package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics for a single run. Every run registers into its own registry, which
// is written out as a node_exporter textfile when the process is done.
type Metrics struct {
	registry *prometheus.Registry

	CacheLookupsTotal *prometheus.CounterVec
	FeedFetchesTotal  *prometheus.CounterVec
	ConversionsTotal  *prometheus.CounterVec
	RatesPublishedAt  prometheus.Gauge
	RatesHeld         prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecbconv_cache_lookups_total",
				Help: "Rate cache lookups by outcome (fresh, stale, miss)",
			},
			[]string{"outcome"},
		),
		FeedFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecbconv_feed_fetches_total",
				Help: "Fetches of the reference rates feed",
			},
			[]string{"result"},
		),
		ConversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecbconv_conversions_total",
				Help: "Currency conversions",
			},
			[]string{"result"},
		),
		RatesPublishedAt: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ecbconv_rates_published_timestamp_seconds",
				Help: "Publication time of the rate table in use",
			},
		),
		RatesHeld: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ecbconv_rates_held",
				Help: "Number of currencies in the rate table in use",
			},
		),
	}
	m.registry.MustRegister(
		m.CacheLookupsTotal,
		m.FeedFetchesTotal,
		m.ConversionsTotal,
		m.RatesPublishedAt,
		m.RatesHeld,
	)
	return m
}

// WriteTextfile writes all metrics in the text exposition format to path,
// atomically, for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
