package origin

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/bigspace/metrics"
	"github.com/plus3/bigspace/space"
)

// OriginReport is the last observed state of one origin role.
type OriginReport struct {
	Set      bool                `json:"set"`
	Position space.SpacePosition `json:"position"`
}

// Report is what the passes publish about the last frame.
type Report struct {
	Frame     uint64            `json:"frame"`
	Floating  OriginReport      `json:"floating"`
	Physics   OriginReport      `json:"physics"`
	Tracked   int               `json:"tracked"`
	Carries   int               `json:"carries"`
	MaxOffset float64           `json:"max_offset"`
	Bodies    int               `json:"bodies"`
	Mirrored  int               `json:"mirrored"`
	Shift     mgl64.Vec3        `json:"shift"`
	Skipped   map[string]uint64 `json:"skipped,omitempty"`
	LastError string            `json:"last_error,omitempty"`
}

// Diagnostics is written by the passes and may be read from other
// goroutines, for example an HTTP status handler.
type Diagnostics struct {
	mu     sync.Mutex
	report Report
}

func (d *Diagnostics) Update(fn func(r *Report)) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.report)
}

// Snapshot returns a copy safe to keep.
func (d *Diagnostics) Snapshot() Report {
	if d == nil {
		return Report{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.report
	r.Skipped = maps.Clone(d.report.Skipped)
	return r
}

// Guard reports precondition violations. Each pass that cannot find a usable
// origin hands the error to Fail and returns without mutating anything.
type Guard struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Diagnostics *Diagnostics
	// Strict turns violations into panics.
	Strict bool
}

func (g *Guard) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// Fail logs err for pass, counts it and panics in strict mode.
func (g *Guard) Fail(pass string, frame uint64, err error) {
	g.logger().Error("pass skipped", "pass", pass, "frame", frame, "err", err)
	if g == nil {
		return
	}

	g.Metrics.Violation(pass)
	g.Diagnostics.Update(func(r *Report) {
		if r.Skipped == nil {
			r.Skipped = make(map[string]uint64)
		}
		r.Skipped[pass]++
		r.LastError = err.Error()
	})

	if g.Strict {
		panic(pass + ": " + err.Error())
	}
}

// Log returns the guard's logger, never nil.
func (g *Guard) Log() *slog.Logger {
	return g.logger()
}

func (g *Guard) metrics() *metrics.Metrics {
	if g == nil {
		return nil
	}
	return g.Metrics
}

func (g *Guard) diagnostics() *Diagnostics {
	if g == nil {
		return nil
	}
	return g.Diagnostics
}

// MetricsSink returns the guard's metrics, possibly nil.
func (g *Guard) MetricsSink() *metrics.Metrics {
	return g.metrics()
}

// Report returns the guard's diagnostics, possibly nil.
func (g *Guard) Report() *Diagnostics {
	return g.diagnostics()
}
