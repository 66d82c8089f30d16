// Package metrics exposes Prometheus instrumentation for the client core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listenupapp/sortir/internal/sse"
)

const namespace = "sortir"

// Metrics owns a private registry so tests and multiple containers never collide.
type Metrics struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
}

// New creates the registry with Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Change events published, by type.",
	}, []string{"type"})
	registry.MustRegister(events)

	return &Metrics{registry: registry, events: events}
}

// GaugeFunc registers a gauge sampled from fn at scrape time.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Emitter returns an sse.Emitter that counts each event before forwarding it to next.
func (m *Metrics) Emitter(next sse.Emitter) sse.Emitter {
	return &countingEmitter{next: next, events: m.events}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

type countingEmitter struct {
	next   sse.Emitter
	events *prometheus.CounterVec
}

func (e *countingEmitter) Emit(event sse.Event) {
	e.events.WithLabelValues(string(event.Type)).Inc()
	e.next.Emit(event)
}

// Bool converts a flag into a gauge value.
func Bool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
