package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "store_ratings"

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	Registry        *prometheus.Registry
	RatingsUpserted *prometheus.CounterVec
	APIErrors       *prometheus.CounterVec
	ListingDuration *prometheus.HistogramVec
}

// New registers all collectors, including Go runtime and process metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		RatingsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratings_upserted_total",
			Help:      "Rating submissions by outcome (created or updated).",
		}, []string{"outcome"}),
		APIErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Rejected or failed API requests by error kind.",
		}, []string{"kind"}),
		ListingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "listing_duration_seconds",
			Help:      "Latency of listing queries by listing name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"listing"}),
	}

	registry.MustRegister(
		m.RatingsUpserted,
		m.APIErrors,
		m.ListingDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveUpsert records one rating submission.
func (m *Metrics) ObserveUpsert(created bool) {
	if m == nil {
		return
	}
	outcome := "updated"
	if created {
		outcome = "created"
	}
	m.RatingsUpserted.WithLabelValues(outcome).Inc()
}

// ObserveError records one failed request of the given kind.
func (m *Metrics) ObserveError(kind string) {
	if m == nil {
		return
	}
	m.APIErrors.WithLabelValues(kind).Inc()
}

// ObserveListing records how long a listing took, in seconds.
func (m *Metrics) ObserveListing(listing string, seconds float64) {
	if m == nil {
		return
	}
	m.ListingDuration.WithLabelValues(listing).Observe(seconds)
}

type poolCollector struct {
	desc *prometheus.Desc
	read func() map[string]float64
}

func (c poolCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c poolCollector) Collect(ch chan<- prometheus.Metric) {
	for state, value := range c.read() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, value, state)
	}
}

// RegisterPool exports database pool connections by state. read is called on every scrape.
func (m *Metrics) RegisterPool(read func() map[string]float64) error {
	if m == nil || read == nil {
		return nil
	}
	return m.Registry.Register(poolCollector{
		desc: prometheus.NewDesc(prometheus.BuildFQName(namespace, "db_pool", "connections"),
			"Database pool connections by state.", []string{"state"}, nil),
		read: read,
	})
}
