// Command bigspace-stress steps the demo scene as fast as it can for a while
// and prints a report of frame times, per-pass timings, memory and how well
// the offsets stayed bounded.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/plus3/bigspace"
	"github.com/plus3/bigspace/demo"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/space"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	bodies := flag.Int("bodies", 10000, "The number of bodies to scatter.")
	extent := flag.Float64("extent", 1e8, "Half width of the cube the bodies are scattered in.")
	edge := flag.Float64("edge", 2000, "Grid cell edge length.")
	cruise := flag.Float64("cruise", 1e6, "Autopilot top speed in units per second.")
	dt := flag.Float64("dt", 1.0/60.0, "Simulated seconds per frame.")
	seed := flag.Uint64("seed", 1, "Scene seed.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	grid, err := space.NewSettings(*edge)
	if err != nil {
		log.Fatalf("grid: %v", err)
	}

	log.Println("Starting bigspace stress test...")

	registry := ecs.NewComponentRegistry()
	bigspace.RegisterComponents(registry)
	storage := ecs.NewStorage(registry)

	autopilot := &demo.Autopilot{Grid: grid, Cruise: *cruise, Arrive: grid.CellEdge()}
	pipeline := bigspace.New(storage, bigspace.Options{
		Grid:    grid,
		Logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
		Systems: []ecs.System{autopilot},
	})

	log.Printf("Populating storage with %d bodies...\n", *bodies)
	scene := demo.Populate(grid, storage, pipeline.Roles, demo.Options{
		Bodies:      *bodies,
		Extent:      *extent,
		Seed:        *seed,
		StaticShare: 0.3,
	})
	autopilot.Ship = scene.Ship
	autopilot.Waypoints = scene.Bodies
	log.Println("Population complete.")

	report := NewReport(grid)
	report.Duration = *duration
	report.Bodies = *bodies
	report.Extent = *extent
	report.Entities = storage.CollectStats().TotalEntityCount
	report.GCPauseMetrics = *gcPauseMetrics

	runtime.ReadMemStats(&report.MemStatsStart)

	log.Printf("Running simulation for %s...\n", *duration)
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			updateStart := time.Now()
			pipeline.Step(*dt)
			report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
			report.Observe(pipeline.Diagnostics.Snapshot())
		}
	}

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	report.Passes = pipeline.Scheduler.GetStats().Systems
	report.Waypoints = autopilot.Arrived
	report.SimulatedTime = time.Duration(float64(report.TotalUpdates) * *dt * float64(time.Second))
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.Println("Simulation finished.")

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}
	fmt.Println("--- End of Report ---")

	log.Println("Stress test complete.")
}
