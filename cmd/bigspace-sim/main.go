// Command bigspace-sim runs the demo scene headless and serves its metrics,
// status, snapshots and map over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/plus3/bigspace"
	"github.com/plus3/bigspace/config"
	"github.com/plus3/bigspace/demo"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/metrics"
	"github.com/plus3/bigspace/origin"
	"github.com/plus3/bigspace/physics"
	"github.com/plus3/bigspace/server"
	"github.com/plus3/bigspace/snapshot"
	"github.com/plus3/bigspace/space"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	envFile := flag.String("env", ".env", "Optional .env file read before the environment.")
	duration := flag.Duration("duration", 0, "Stop after this long; 0 runs until interrupted.")
	cruise := flag.Float64("cruise", 5e5, "Autopilot top speed in units per second.")
	flag.Parse()

	cfg, err := config.FromEnv(*envFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	grid, err := cfg.Grid()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	if err := run(ctx, cfg, grid, logger, *cruise); err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, grid *space.Settings, logger *slog.Logger, cruise float64) error {
	registry := ecs.NewComponentRegistry()
	bigspace.RegisterComponents(registry)
	storage := ecs.NewStorage(registry)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	roles := origin.NewRoles()
	autopilot := &demo.Autopilot{Grid: grid, Cruise: cruise, Arrive: grid.CellEdge()}

	pipeline := bigspace.New(storage, bigspace.Options{
		Grid:    grid,
		Roles:   roles,
		Logger:  logger,
		Metrics: metrics.New(promRegistry),
		Strict:  cfg.Strict,
		Solver:  &physics.Integrator{},
		Systems: []ecs.System{autopilot},
	})

	if err := populate(cfg, grid, storage, roles, autopilot, logger); err != nil {
		return err
	}
	logger.Info("simulation starting",
		"cell_edge", grid.CellEdge(),
		"tick_rate", cfg.TickRate,
		"entities", storage.CollectStats().TotalEntityCount,
		"strict", cfg.Strict)

	errCh := make(chan error, 1)
	if cfg.MetricsAddr != "" {
		srv := server.New(server.RouterConfig{
			World:       pipeline,
			Grid:        grid,
			Roles:       roles,
			Diagnostics: pipeline.Diagnostics,
			Logger:      logger,
			Gatherer:    promRegistry,
		})
		go func() { errCh <- srv.Serve(ctx, cfg.MetricsAddr) }()
	} else {
		close(errCh)
	}

	go reportLoop(ctx, pipeline, logger, 10*time.Second)
	pipeline.Run(ctx, cfg.TickInterval())

	var errs []error
	if err := <-errCh; err != nil {
		errs = append(errs, err)
	}
	if cfg.SnapshotPath != "" {
		snap := snapshot.Capture(grid, storage, roles, pipeline.Diagnostics.Snapshot().Frame)
		if err := snap.Save(cfg.SnapshotPath); err != nil {
			errs = append(errs, err)
		} else {
			logger.Info("snapshot saved", "path", cfg.SnapshotPath, "entities", len(snap.Entities))
		}
	}
	return errors.Join(errs...)
}

// populate restores the snapshot at cfg.SnapshotPath when there is one and
// builds the demo scene otherwise.
func populate(cfg config.Config, grid *space.Settings, storage *ecs.Storage, roles *origin.Roles, autopilot *demo.Autopilot, logger *slog.Logger) error {
	if cfg.SnapshotPath != "" {
		snap, err := snapshot.Load(cfg.SnapshotPath)
		switch {
		case err == nil:
			ids, err := snap.Restore(grid, storage, roles)
			if err != nil {
				return err
			}
			ship := roles.Ref(origin.Physics)
			autopilot.Ship = ship
			for _, id := range ids {
				if ref := storage.CreateEntityRef(id); ref != nil && ref != ship && storage.HasComponent(id, physicsBodyType) {
					autopilot.Waypoints = append(autopilot.Waypoints, ref)
				}
			}
			logger.Info("snapshot restored", "path", cfg.SnapshotPath, "frame", snap.Frame, "entities", len(ids))
			return nil
		case !errors.Is(err, fs.ErrNotExist):
			return err
		}
	}

	scene := demo.Populate(grid, storage, roles, demo.Options{
		Bodies:      cfg.Bodies,
		Extent:      cfg.WorldExtent,
		Seed:        cfg.Seed,
		StaticShare: 0.3,
	})
	autopilot.Ship = scene.Ship
	autopilot.Waypoints = scene.Bodies
	return nil
}

func reportLoop(ctx context.Context, pipeline *bigspace.Pipeline, logger *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r := pipeline.Diagnostics.Snapshot()
			logger.Info("frame report",
				"frame", r.Frame,
				"floating", r.Floating.Position.Cell,
				"tracked", r.Tracked,
				"carries", r.Carries,
				"max_offset", r.MaxOffset,
				"bodies", r.Bodies,
				"last_error", r.LastError)
		}
	}
}

var physicsBodyType = reflect.TypeFor[physics.RigidBody]()
