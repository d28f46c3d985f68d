// Package metrics exposes the frame passes to Prometheus. Label values are a
// fixed set of pass names; nothing per-entity is ever used as a label.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pass names used as the "pass" label.
const (
	PassFollow    = "follow"
	PassRecenter  = "recenter"
	PassPreSync   = "presync"
	PassPostSync  = "postsync"
	PassPropagate = "propagate"
)

// Metrics groups every collector. A nil *Metrics records nothing.
type Metrics struct {
	carries          prometheus.Counter
	recenterDuration prometheus.Histogram
	maxOffset        prometheus.Gauge
	trackedEntities  prometheus.Gauge
	originShift      prometheus.Histogram
	physicsBodies    prometheus.Gauge
	mirroredBodies   prometheus.Counter
	violations       *prometheus.CounterVec
	frameDuration    prometheus.Histogram
}

// New registers the collectors on reg. Use prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		carries: f.NewCounter(prometheus.CounterOpts{
			Name: "bigspace_recenter_carries_total",
			Help: "Offsets carried into their grid cell by the recenter pass",
		}),
		recenterDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bigspace_recenter_duration_seconds",
			Help:    "Time spent in the recenter pass",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		maxOffset: f.NewGauge(prometheus.GaugeOpts{
			Name: "bigspace_max_offset_magnitude",
			Help: "Largest per-axis local offset seen before normalization in the last frame",
		}),
		trackedEntities: f.NewGauge(prometheus.GaugeOpts{
			Name: "bigspace_tracked_entities",
			Help: "Grid-tracked entities visited by the recenter pass",
		}),
		originShift: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bigspace_physics_origin_shift",
			Help:    "Distance the physics frame was shifted per frame",
			Buckets: prometheus.ExponentialBuckets(0.001, 10, 10),
		}),
		physicsBodies: f.NewGauge(prometheus.GaugeOpts{
			Name: "bigspace_physics_bodies",
			Help: "Rigid bodies handled by the physics sync passes",
		}),
		mirroredBodies: f.NewCounter(prometheus.CounterOpts{
			Name: "bigspace_render_to_physics_mirrors_total",
			Help: "Bodies whose render transform was pushed into the solver",
		}),
		violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bigspace_precondition_violations_total",
			Help: "Frames in which a pass was skipped because an origin role was unusable",
		}, []string{"pass"}),
		frameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bigspace_frame_duration_seconds",
			Help:    "Time spent running one full frame pipeline",
			Buckets: []float64{0.001, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1},
		}),
	}
}

// ObserveRecenter records one recenter pass.
func (m *Metrics) ObserveRecenter(tracked, carries int, maxOffset float64, took time.Duration) {
	if m == nil {
		return
	}
	m.trackedEntities.Set(float64(tracked))
	m.carries.Add(float64(carries))
	m.maxOffset.Set(maxOffset)
	m.recenterDuration.Observe(took.Seconds())
}

// ObserveOriginShift records the length of the physics frame shift.
func (m *Metrics) ObserveOriginShift(distance float64) {
	if m == nil {
		return
	}
	m.originShift.Observe(distance)
}

// ObserveBodies records the body count and how many were mirrored into the solver.
func (m *Metrics) ObserveBodies(bodies, mirrored int) {
	if m == nil {
		return
	}
	m.physicsBodies.Set(float64(bodies))
	m.mirroredBodies.Add(float64(mirrored))
}

// Violation counts a skipped pass.
func (m *Metrics) Violation(pass string) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues(pass).Inc()
}

// ObserveFrame records the duration of a whole frame.
func (m *Metrics) ObserveFrame(took time.Duration) {
	if m == nil {
		return
	}
	m.frameDuration.Observe(took.Seconds())
}
