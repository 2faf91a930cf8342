// Package metrics exposes counters for the match result lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services report to. Outcome is "ok", "noop" or the
// error kind that rejected the transition.
type Recorder interface {
	RecordTransition(event, outcome string)
	RecordRatingAdjustment(reason string, winnerDelta, loserDelta int)
	RecordAdvancementConflict()
	RecordNotificationDropped()
}

type Prometheus struct {
	registry             *prometheus.Registry
	transitions          *prometheus.CounterVec
	ratingAdjustments    *prometheus.CounterVec
	ratingPoints         *prometheus.HistogramVec
	advancementConflicts prometheus.Counter
	notificationsDropped prometheus.Counter
}

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := &Prometheus{
		registry: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ranked_portal",
			Name:      "match_transitions_total",
			Help:      "Match ledger events by outcome.",
		}, []string{"event", "outcome"}),
		ratingAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ranked_portal",
			Name:      "rating_adjustments_total",
			Help:      "Applied rating adjustments by reason.",
		}, []string{"reason"}),
		ratingPoints: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ranked_portal",
			Name:      "rating_delta_points",
			Help:      "Absolute rating delta per side.",
			Buckets:   []float64{0, 5, 10, 15, 20, 25, 30, 35},
		}, []string{"side"}),
		advancementConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ranked_portal",
			Name:      "advancement_conflicts_total",
			Help:      "Bracket advancement conflicts. Any increase needs operator attention.",
		}),
		notificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ranked_portal",
			Name:      "notifications_dropped_total",
			Help:      "Events that could not be queued for delivery.",
		}),
	}
	reg.MustRegister(p.transitions, p.ratingAdjustments, p.ratingPoints, p.advancementConflicts, p.notificationsDropped)
	return p
}

func (p *Prometheus) RecordTransition(event, outcome string) {
	p.transitions.WithLabelValues(event, outcome).Inc()
}

func (p *Prometheus) RecordRatingAdjustment(reason string, winnerDelta, loserDelta int) {
	p.ratingAdjustments.WithLabelValues(reason).Inc()
	p.ratingPoints.WithLabelValues("winner").Observe(float64(abs(winnerDelta)))
	p.ratingPoints.WithLabelValues("loser").Observe(float64(abs(loserDelta)))
}

func (p *Prometheus) RecordAdvancementConflict() {
	p.advancementConflicts.Inc()
}

func (p *Prometheus) RecordNotificationDropped() {
	p.notificationsDropped.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// NoOp discards everything.
type NoOp struct{}

func (NoOp) RecordTransition(string, string)         {}
func (NoOp) RecordRatingAdjustment(string, int, int) {}
func (NoOp) RecordAdvancementConflict()              {}
func (NoOp) RecordNotificationDropped()              {}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
