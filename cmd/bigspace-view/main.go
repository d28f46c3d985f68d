// Command bigspace-view runs the demo scene in a window: a top-down map of
// the world around the floating origin with the debug panels on top.
//
// Drag with the left mouse button to pan, scroll to zoom, Home to recenter on
// the floating origin, Q or Escape to quit.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/bigspace"
	"github.com/plus3/bigspace/config"
	"github.com/plus3/bigspace/debugui"
	debugui_ebiten "github.com/plus3/bigspace/debugui/ebiten"
	"github.com/plus3/bigspace/demo"
	"github.com/plus3/bigspace/ecs"
	"github.com/plus3/bigspace/origin"
)

const (
	ScreenWidth  = 1280
	ScreenHeight = 720
)

func main() {
	envFile := flag.String("env", ".env", "Optional .env file read before the environment.")
	cruise := flag.Float64("cruise", 5e4, "Autopilot top speed in units per second.")
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

	imguiBackend := debugui_ebiten.NewImguiBackend("bigspace", ScreenWidth, ScreenHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	registry := ecs.NewComponentRegistry()
	bigspace.RegisterComponents(registry)
	debugui.RegisterComponents(registry)
	ecs.RegisterComponent[debugui_ebiten.ImguiBackend](registry)
	ecs.RegisterComponent[ViewCamera](registry)
	ecs.RegisterComponent[ViewInput](registry)
	storage := ecs.NewStorage(registry)

	ecs.NewSingleton[debugui_ebiten.ImguiBackend](storage, imguiBackend)
	ecs.NewSingleton[ViewCamera](storage, ViewCamera{
		Scale:   ScreenHeight / (4 * grid.CellEdge()),
		ScreenW: ScreenWidth,
		ScreenH: ScreenHeight,
	})
	ecs.NewSingleton[ViewInput](storage, ViewInput{})

	roles := origin.NewRoles()
	autopilot := &demo.Autopilot{Grid: grid, Cruise: *cruise, Arrive: grid.CellEdge()}
	pipeline := bigspace.New(storage, bigspace.Options{
		Grid:    grid,
		Roles:   roles,
		Logger:  logger,
		Strict:  cfg.Strict,
		Systems: []ecs.System{autopilot, &CameraControlSystem{}},
	})

	scene := demo.Populate(grid, storage, roles, demo.Options{
		Bodies:      cfg.Bodies,
		Extent:      cfg.WorldExtent,
		Seed:        cfg.Seed,
		StaticShare: 0.3,
	})
	autopilot.Ship = scene.Ship
	autopilot.Waypoints = scene.Bodies

	mapSystem := &MapSystem{Roles: roles}
	pipeline.Scheduler.Register(mapSystem)
	pipeline.Scheduler.Register(&debugui.ImguiSystem{})
	debugui.SpawnPanels(debugui.Sources{
		Storage:     storage,
		Scheduler:   pipeline.Scheduler,
		Grid:        grid,
		Roles:       roles,
		Diagnostics: pipeline.Diagnostics,
	})

	logger.Info("viewer starting", "cell_edge", grid.CellEdge(), "bodies", cfg.Bodies)

	game := &Game{
		Pipeline:     pipeline,
		Map:          mapSystem,
		Camera:       ecs.NewSingleton[ViewCamera](storage),
		imguiBackend: ecs.NewSingleton[debugui_ebiten.ImguiBackend](storage),
		dt:           1 / float64(cfg.TickRate),
	}
	if err := ebiten.RunGame(game); err != nil {
		logger.Error("viewer stopped", "error", err)
		os.Exit(1)
	}
}

type Game struct {
	Pipeline *bigspace.Pipeline
	Map      *MapSystem
	Camera   *ecs.Singleton[ViewCamera]

	imguiBackend *ecs.Singleton[debugui_ebiten.ImguiBackend]
	dt           float64
}

func (g *Game) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyQ) || ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	g.imguiBackend.Get().Frame(func() {
		g.Pipeline.Step(g.dt)
	})
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	camera := g.Camera.Get()
	camera.ScreenW = screen.Bounds().Dx()
	camera.ScreenH = screen.Bounds().Dy()

	g.Map.Draw(screen, camera)
	g.imguiBackend.Get().Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.imguiBackend.Get().Layout(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}
