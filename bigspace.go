// Package bigspace wires the floating-origin passes into one frame pipeline.
//
// A frame runs, in order: game systems, follow, recenter, physics pre-sync,
// the solver, physics post-sync and propagate. Everything happens on the
// goroutine calling Step or Run; other goroutines reach the world through Do.
package bigspace

import (
	"context"
	"log/slog"
	"time"

	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/follow"
	"github.com/plus3/bigspace/metrics"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/physics"
	"github.com/plus3/bigspace/space"
)

// RegisterComponents registers every component the pipeline touches.
func RegisterComponents(r *ecs.ComponentRegistry) {
	physics.RegisterComponents(r)
	follow.RegisterComponents(r)
}

type Options struct {
	Grid *space.Settings
	// Roles defaults to an empty set; assign the origins before the first
	// frame or the passes will skip.
	Roles       *origin.Roles
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Diagnostics *origin.Diagnostics
	Strict      bool
	// Solver defaults to a gravity-free Integrator.
	Solver physics.Solver
	// Systems run at the start of every frame, before any pass.
	Systems []ecs.System
}

type Pipeline struct {
	Grid        *space.Settings
	Roles       *origin.Roles
	Diagnostics *origin.Diagnostics
	Guard       *origin.Guard
	Scheduler   *ecs.Scheduler

	metrics  *metrics.Metrics
	requests chan request
}

type request struct {
	fn   func(*ecs.Storage)
	done chan struct{}
}

// New registers the frame pipeline on a fresh scheduler for storage.
func New(storage *ecs.Storage, opts Options) *Pipeline {
	if opts.Roles == nil {
		opts.Roles = origin.NewRoles()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = &origin.Diagnostics{}
	}
	if opts.Solver == nil {
		opts.Solver = &physics.Integrator{}
	}

	p := &Pipeline{
		Grid:        opts.Grid,
		Roles:       opts.Roles,
		Diagnostics: opts.Diagnostics,
		Guard: &origin.Guard{
			Logger:      opts.Logger,
			Metrics:     opts.Metrics,
			Diagnostics: opts.Diagnostics,
			Strict:      opts.Strict,
		},
		Scheduler: ecs.NewScheduler(storage),
		metrics:   opts.Metrics,
		requests:  make(chan request),
	}

	for _, system := range opts.Systems {
		p.Scheduler.Register(system)
	}
	p.Scheduler.Register(&follow.System{Grid: p.Grid, Logger: opts.Logger})
	p.Scheduler.Register(&origin.RecenterSystem{Grid: p.Grid, Roles: p.Roles, Guard: p.Guard})
	p.Scheduler.Register(&physics.PreSyncSystem{Grid: p.Grid, Roles: p.Roles, Guard: p.Guard})
	p.Scheduler.Register(&physics.SolverSystem{Solver: opts.Solver})
	p.Scheduler.Register(&physics.PostSyncSystem{Grid: p.Grid, Roles: p.Roles, Guard: p.Guard})
	p.Scheduler.Register(&origin.PropagateSystem{Grid: p.Grid, Roles: p.Roles, Guard: p.Guard})
	return p
}

// Storage returns the world the pipeline runs on.
func (p *Pipeline) Storage() *ecs.Storage {
	return p.Scheduler.Storage()
}

// Step runs one frame.
func (p *Pipeline) Step(dt float64) {
	start := time.Now()
	p.Scheduler.Once(dt)
	p.metrics.ObserveFrame(time.Since(start))
}

// Run steps the pipeline every interval until ctx is cancelled. Functions
// passed to Do run between frames.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-p.requests:
			req.fn(p.Storage())
			close(req.done)
		case now := <-ticker.C:
			p.Step(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Do runs fn on the pipeline goroutine between two frames and waits for it.
func (p *Pipeline) Do(ctx context.Context, fn func(*ecs.Storage)) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
