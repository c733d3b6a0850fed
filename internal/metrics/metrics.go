// Package metrics exposes Prometheus counters for the bot.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/geopal/internal/notify"
)

const namespace = "geopal"

// Metrics groups the bot counters. A nil *Metrics records nothing.
type Metrics struct {
	events        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	wizards       *prometheus.CounterVec
	broadcasts    *prometheus.CounterVec
	geocodeCache  *prometheus.CounterVec
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events by kind and matched route.",
		}, []string{"kind", "route"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outbound notifier calls by operation and status.",
		}, []string{"op", "status"}),
		wizards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "friend_request_wizards_total",
			Help:      "Finished friend request wizards by outcome.",
		}, []string{"outcome"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_broadcasts_total",
			Help:      "Location broadcasts by status.",
		}, []string{"status"}),
		geocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_lookups_total",
			Help:      "Place cache lookups by result.",
		}, []string{"cache"}),
	}
	reg.MustRegister(m.events, m.notifications, m.wizards, m.broadcasts, m.geocodeCache)
	return m
}

// EventRouted counts an inbound event.
func (m *Metrics) EventRouted(kind, route string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind, route).Inc()
}

// WizardFinished counts a finished wizard.
func (m *Metrics) WizardFinished(outcome string) {
	if m == nil {
		return
	}
	m.wizards.WithLabelValues(outcome).Inc()
}

// BroadcastFinished counts a location broadcast.
func (m *Metrics) BroadcastFinished(delivered, total int) {
	if m == nil {
		return
	}
	status := "ok"
	if delivered < total {
		status = "partial"
	}
	m.broadcasts.WithLabelValues(status).Inc()
}

// CacheLookup counts a place cache lookup.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.geocodeCache.WithLabelValues(result).Inc()
}

func (m *Metrics) notification(op string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "fail"
	}
	m.notifications.WithLabelValues(op, status).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Notifier counts calls made through the wrapped notifier.
type Notifier struct {
	next notify.Notifier
	m    *Metrics
}

// InstrumentNotifier wraps n.
func InstrumentNotifier(n notify.Notifier, m *Metrics) *Notifier {
	return &Notifier{next: n, m: m}
}

func (n *Notifier) Notify(ctx context.Context, addr notify.Address, text string, controls *notify.Controls) (notify.MessageRef, error) {
	ref, err := n.next.Notify(ctx, addr, text, controls)
	n.m.notification("send", err)
	return ref, err
}

func (n *Notifier) EditControls(ctx context.Context, addr notify.Address, ref notify.MessageRef, controls *notify.Controls) error {
	err := n.next.EditControls(ctx, addr, ref, controls)
	n.m.notification("edit", err)
	return err
}

func (n *Notifier) Delete(ctx context.Context, addr notify.Address, ref notify.MessageRef) error {
	err := n.next.Delete(ctx, addr, ref)
	n.m.notification("delete", err)
	return err
}
