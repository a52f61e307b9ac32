// Package metrics holds the Prometheus collectors shared by the movie services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records downstream calls and broadcast activity. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	downstream  *prometheus.CounterVec
	retries     *prometheus.CounterVec
	published   *prometheus.CounterVec
	publishErrs *prometheus.CounterVec
	subscribers *prometheus.GaugeVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		downstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "movies",
			Name:      "downstream_requests_total",
			Help:      "Outbound requests to movie dependencies by outcome.",
		}, []string{"dependency", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "movies",
			Name:      "downstream_retries_total",
			Help:      "Retries issued after a retryable downstream failure.",
		}, []string{"dependency"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "movies",
			Name:      "broadcast_published_total",
			Help:      "Records published to a broadcast stream.",
		}, []string{"stream"}),
		publishErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "movies",
			Name:      "broadcast_publish_errors_total",
			Help:      "Records that could not be published to a broadcast stream.",
		}, []string{"stream"}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "movies",
			Name:      "broadcast_subscribers",
			Help:      "Currently attached stream subscribers.",
		}, []string{"stream"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.downstream,
		m.retries,
		m.published,
		m.publishErrs,
		m.subscribers,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) DownstreamRequest(dependency, outcome string) {
	if m == nil {
		return
	}
	m.downstream.WithLabelValues(dependency, outcome).Inc()
}

func (m *Metrics) DownstreamRetry(dependency string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(dependency).Inc()
}

func (m *Metrics) Published(stream string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(stream).Inc()
}

func (m *Metrics) PublishFailed(stream string) {
	if m == nil {
		return
	}
	m.publishErrs.WithLabelValues(stream).Inc()
}

// SubscriberAttached increments the subscriber gauge and returns the matching decrement.
func (m *Metrics) SubscriberAttached(stream string) func() {
	if m == nil {
		return func() {}
	}
	g := m.subscribers.WithLabelValues(stream)
	g.Inc()
	return g.Dec
}
