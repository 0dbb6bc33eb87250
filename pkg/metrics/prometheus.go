// Package metrics exports dashboard telemetry events to Prometheus.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dashboard "github.com/goliatone/go-querydash/components/dashboard"
)

const namespace = "querydash"

var _ dashboard.Telemetry = (*PrometheusTelemetry)(nil)

// PrometheusTelemetry counts events and observes their durations.
type PrometheusTelemetry struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusTelemetry registers the collectors on reg. A nil registerer
// uses the default registry.
func NewPrometheusTelemetry(reg prometheus.Registerer) *PrometheusTelemetry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusTelemetry{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Dashboard events by name.",
		}, []string{"event"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Duration reported by dashboard events.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"event"}),
	}
}

// Record implements dashboard.Telemetry.
func (t *PrometheusTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	t.events.WithLabelValues(event).Inc()
	if d, ok := durationOf(payload); ok {
		t.duration.WithLabelValues(event).Observe(d.Seconds())
	}
}

// durationOf reads a duration_ms (number) or duration (time.Duration) field.
func durationOf(payload map[string]any) (time.Duration, bool) {
	if v, ok := payload["duration"].(time.Duration); ok {
		return v, true
	}
	switch v := payload["duration_ms"].(type) {
	case int64:
		return time.Duration(v) * time.Millisecond, true
	case int:
		return time.Duration(v) * time.Millisecond, true
	case float64:
		return time.Duration(v * float64(time.Millisecond)), true
	}
	return 0, false
}
