package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "intake"

// Metrics holds the collectors fed by the lifecycle hooks.
type Metrics struct {
	registry *prometheus.Registry

	Turns         *prometheus.CounterVec
	Answers       prometheus.Counter
	Fallbacks     prometheus.Counter
	NodeVisits    *prometheus.CounterVec
	Deliveries    *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry that also carries
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of handled user turns",
		}, []string{"kind"}),
		Answers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Total number of recorded answers",
		}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of turns answered with the fallback",
		}),
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Total number of turns ending on a node",
		}, []string{"node_id"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total number of outbound deliveries by type and outcome",
		}, []string{"type", "outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of operator notifications",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.Turns, m.Answers, m.Fallbacks, m.NodeVisits, m.Deliveries, m.Notifications,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			m.Turns.WithLabelValues(string(e.Kind)).Inc()
			m.NodeVisits.WithLabelValues(strconv.Itoa(e.ToNode)).Inc()
			if e.Recorded {
				m.Answers.Inc()
			}
			if e.Fallback {
				m.Fallbacks.Inc()
			}
		},
		OnDelivery: func(_ context.Context, e *domain.DeliveryEvent) {
			m.Deliveries.WithLabelValues(string(e.Type), string(e.Outcome)).Inc()
		},
		OnNotify: func(_ context.Context, e *domain.NotifyEvent) {
			m.Notifications.WithLabelValues(string(e.Kind)).Inc()
		},
	}
}
